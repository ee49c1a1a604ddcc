//go:build !darwin

package codec

func platformHEIC() HEICEncoder { return nil }
