//go:build darwin

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
// #include <stdlib.h>
// #include <string.h>
//
// static NSInteger clipsave_change_count() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
//
// static long clipsave_data_for_type(const char *type, void **out) {
//     @autoreleasepool {
//         NSString *t = [NSString stringWithUTF8String:type];
//         NSData *d = [[NSPasteboard generalPasteboard] dataForType:t];
//         if (d == nil) {
//             return -1;
//         }
//         long n = (long)[d length];
//         *out = malloc(n > 0 ? n : 1);
//         memcpy(*out, [d bytes], n);
//         return n;
//     }
// }
//
// static char *clipsave_file_paths() {
//     @autoreleasepool {
//         NSDictionary *opts = @{NSPasteboardURLReadingFileURLsOnlyKey: @YES};
//         NSArray *urls = [[NSPasteboard generalPasteboard]
//             readObjectsForClasses:@[[NSURL class]] options:opts];
//         if (urls == nil || [urls count] == 0) {
//             return NULL;
//         }
//         NSMutableArray *paths = [NSMutableArray arrayWithCapacity:[urls count]];
//         for (NSURL *u in urls) {
//             [paths addObject:[u path]];
//         }
//         return strdup([[paths componentsJoinedByString:@"\n"] UTF8String]);
//     }
// }
//
// static void clipsave_relinquish() {
//     [[NSPasteboard generalPasteboard] declareTypes:@[] owner:nil];
// }
import "C"

import (
	"log/slog"
	"strings"
	"unsafe"

	"golang.design/x/clipboard"
)

const (
	utiPDF  = "com.adobe.pdf"
	utiRTF  = "public.rtf"
	utiTIFF = "public.tiff"
)

type darwinBackend struct{}

// New returns the macOS clipboard backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// that never construct a Backend don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	return &darwinBackend{}
}

func (b *darwinBackend) Name() string { return "macOS NSPasteboard" }

func (b *darwinBackend) ChangeCount() int64 { return int64(C.clipsave_change_count()) }

func (b *darwinBackend) Image() []byte {
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return img
	}
	return dataForType(utiTIFF)
}

func (b *darwinBackend) PDF() []byte { return dataForType(utiPDF) }
func (b *darwinBackend) RTF() []byte { return dataForType(utiRTF) }

func (b *darwinBackend) Text() (string, bool) {
	text := clipboard.Read(clipboard.FmtText)
	if text == nil {
		return "", false
	}
	return string(text), true
}

func (b *darwinBackend) Files() []string {
	cs := C.clipsave_file_paths()
	if cs == nil {
		return nil
	}
	defer C.free(unsafe.Pointer(cs))
	return strings.Split(C.GoString(cs), "\n")
}

// Relinquish empties the general pasteboard so no stale owner holds it.
func (b *darwinBackend) Relinquish() error {
	C.clipsave_relinquish()
	return nil
}

func (b *darwinBackend) Close() {}

func dataForType(uti string) []byte {
	ct := C.CString(uti)
	defer C.free(unsafe.Pointer(ct))

	var p unsafe.Pointer
	n := C.clipsave_data_for_type(ct, &p)
	if n < 0 {
		return nil
	}
	defer C.free(p)
	return C.GoBytes(p, C.int(n))
}
