package clip

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless Linux servers, containers, etc.).
// Its counter never moves, so the classifier never fires.
type headlessBackend struct{}

func (b *headlessBackend) Name() string         { return "headless (no-op)" }
func (b *headlessBackend) ChangeCount() int64   { return 0 }
func (b *headlessBackend) Image() []byte        { return nil }
func (b *headlessBackend) PDF() []byte          { return nil }
func (b *headlessBackend) RTF() []byte          { return nil }
func (b *headlessBackend) Text() (string, bool) { return "", false }
func (b *headlessBackend) Files() []string      { return nil }
func (b *headlessBackend) Relinquish() error    { return nil }
func (b *headlessBackend) Close()               {}
