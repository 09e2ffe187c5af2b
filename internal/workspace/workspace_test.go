package workspace_test

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/session"
	"github.com/fakeyudi/annotate/internal/workspace"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func relPaths(entries []workspace.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelativePath
	}
	return out
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in"), filepath.Join(dir, "out")
	touch(t, filepath.Join(in, "b.png"), "")
	touch(t, filepath.Join(in, "A.JPG"), "")
	touch(t, filepath.Join(in, "notes.txt"), "")
	touch(t, filepath.Join(in, "sub", "c.jpeg"), "")

	flat, err := workspace.ListImages(in, out, []string{".png", ".jpg", "jpeg"}, false)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if got, want := relPaths(flat), []string{"A.JPG", "b.png"}; !reflect.DeepEqual(got, want) {
		t.Errorf("flat = %v, want %v", got, want)
	}

	deep, err := workspace.ListImages(in, out, []string{".png", ".jpg", "jpeg"}, true)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if got, want := relPaths(deep), []string{"A.JPG", "b.png", "sub/c.jpeg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("recursive = %v, want %v", got, want)
	}
	if want := filepath.Join(out, "sub", "c.json"); deep[2].RecordPath != want {
		t.Errorf("RecordPath = %s, want %s", deep[2].RecordPath, want)
	}
	if want := filepath.Join(in, "sub", "c.jpeg"); deep[2].ImagePath != want {
		t.Errorf("ImagePath = %s, want %s", deep[2].ImagePath, want)
	}
}

func TestListImagesMissingInput(t *testing.T) {
	if _, err := workspace.ListImages(filepath.Join(t.TempDir(), "nope"), "out", []string{".png"}, false); err == nil {
		t.Fatal("expected error for a missing input directory")
	}
}

func TestMapOutputPath(t *testing.T) {
	got, err := workspace.MapOutputPath("/data/in", "/data/out", "/data/in/cam1/frame.001.png")
	if err != nil {
		t.Fatalf("MapOutputPath: %v", err)
	}
	if want := filepath.FromSlash("/data/out/cam1/frame.001.json"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if _, err := workspace.MapOutputPath("/data/in", "/data/out", "/elsewhere/x.png"); err == nil {
		t.Error("expected error for an image outside the input root")
	}
}

func TestFilter(t *testing.T) {
	entries := []workspace.Entry{
		{RelativePath: "cam1/Frame_01.png"},
		{RelativePath: "cam2/frame_02.png"},
		{RelativePath: "cam2/other.png"},
	}
	if got := workspace.Filter(entries, "  FRAME "); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Filter(frame) = %v", got)
	}
	if got := workspace.Filter(entries, ""); len(got) != 3 {
		t.Errorf("empty query matched %d", len(got))
	}
	if got := workspace.Filter(entries, "zzz"); len(got) != 0 {
		t.Errorf("Filter(zzz) = %v", got)
	}
}

func TestImageSize(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	writePNG(t, pngPath, 30, 20)
	if w, h, err := workspace.ImageSize(pngPath); err != nil || w != 30 || h != 20 {
		t.Errorf("png: %d x %d, %v", w, h, err)
	}

	bmpPath := filepath.Join(dir, "a.bmp")
	f, err := os.Create(bmpPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, image.NewRGBA(image.Rect(0, 0, 7, 9))); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if w, h, err := workspace.ImageSize(bmpPath); err != nil || w != 7 || h != 9 {
		t.Errorf("bmp: %d x %d, %v", w, h, err)
	}

	junk := filepath.Join(dir, "junk.png")
	touch(t, junk, "not an image")
	if _, _, err := workspace.ImageSize(junk); err == nil {
		t.Error("expected error for a non-image")
	}
}

func TestNotices(t *testing.T) {
	var dropped []int
	for id := 24; id >= 0; id-- {
		dropped = append(dropped, id, id)
	}
	notices := workspace.Notices(&session.LoadReport{
		DroppedInvalidIDs: dropped,
		ClampedCount:      2,
	})
	if len(notices) != 2 {
		t.Fatalf("notices = %v", notices)
	}
	if notices[0].Level != workspace.Warning {
		t.Errorf("first notice should be a warning: %v", notices[0])
	}
	want := "dropped 50 invalid boxes (ids: 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19…)"
	if notices[0].Text != want {
		t.Errorf("warning = %q\nwant      %q", notices[0].Text, want)
	}
	if !strings.Contains(notices[1].Text, "clamped 2") {
		t.Errorf("info = %q", notices[1].Text)
	}

	short := workspace.Notices(&session.LoadReport{DroppedInvalidIDs: []int{9, 3}})
	if len(short) != 1 || !strings.HasSuffix(short[0].Text, "(ids: 3, 9)") {
		t.Errorf("short sample = %v", short)
	}
	mixed := workspace.Notices(&session.LoadReport{DroppedInvalidIDs: []int{3}, SkippedEntries: 1})
	if len(mixed) != 1 || mixed[0].Text != "dropped 2 invalid boxes (ids: 3; 1 without id)" {
		t.Errorf("dropped and skipped entries = %v, want one combined warning", mixed)
	}
	skipped := workspace.Notices(&session.LoadReport{SkippedEntries: 2})
	if len(skipped) != 1 || skipped[0].Text != "dropped 2 invalid boxes (2 without id)" {
		t.Errorf("skipped only = %v", skipped)
	}
	if got := workspace.Notices(&session.LoadReport{}); len(got) != 0 {
		t.Errorf("clean report produced notices: %v", got)
	}
}

// flakyStore wraps the disk store and fails saves on demand.
type flakyStore struct {
	session.SessionStore
	failSave bool
}

func (f *flakyStore) Save(s *session.Session) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.SessionStore.Save(s)
}

func newEditor(t *testing.T) (*workspace.Editor, *flakyStore, string) {
	t.Helper()
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in"), filepath.Join(dir, "out")
	writePNG(t, filepath.Join(in, "a.png"), 40, 30)
	writePNG(t, filepath.Join(in, "b.png"), 20, 20)
	touch(t, filepath.Join(in, "c.png"), "broken")

	entries, err := workspace.ListImages(in, out, []string{".png"}, false)
	if err != nil {
		t.Fatal(err)
	}
	store := &flakyStore{SessionStore: session.NewSessionStore()}
	ed, err := workspace.NewEditor(store, entries)
	if err != nil {
		t.Fatal(err)
	}
	return ed, store, out
}

func TestNewEditorRequiresImages(t *testing.T) {
	if _, err := workspace.NewEditor(session.NewSessionStore(), nil); !errors.Is(err, workspace.ErrNoImages) {
		t.Errorf("err = %v, want ErrNoImages", err)
	}
}

func TestOpenCreatesRecord(t *testing.T) {
	ed, _, out := newEditor(t)
	report, err := ed.Open(0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !report.CreatedNewRecord {
		t.Error("first open should create the record")
	}
	if _, err := os.Stat(filepath.Join(out, "a.json")); err != nil {
		t.Errorf("record not on disk: %v", err)
	}
	if s := ed.Session(); s.Width != 40 || s.Height != 30 {
		t.Errorf("session size = %dx%d, want 40x30", s.Width, s.Height)
	}
}

func TestSwitchSavesOutgoing(t *testing.T) {
	ed, _, out := newEditor(t)
	if _, err := ed.Open(0); err != nil {
		t.Fatal(err)
	}
	ed.Session().AddBox(geometry.BBox{XMin: 1, YMin: 1, XMax: 10, YMax: 10})

	if _, err := ed.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ed.Index() != 1 {
		t.Errorf("Index = %d, want 1", ed.Index())
	}
	data, err := os.ReadFile(filepath.Join(out, "a.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"bbox": [`) {
		t.Errorf("outgoing session not saved:\n%s", data)
	}
}

func TestSwitchBlockedBySaveFailure(t *testing.T) {
	ed, store, _ := newEditor(t)
	if _, err := ed.Open(0); err != nil {
		t.Fatal(err)
	}
	before := ed.Session()
	before.AddBox(geometry.BBox{XMin: 1, YMin: 1, XMax: 10, YMax: 10})
	store.failSave = true

	_, err := ed.Open(1)
	if !errors.Is(err, workspace.ErrSaveFailed) {
		t.Fatalf("err = %v, want ErrSaveFailed", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error lost its cause: %v", err)
	}
	if ed.Index() != 0 || ed.Session() != before || !before.Dirty {
		t.Error("failed save must keep the outgoing session active and dirty")
	}
	if err := ed.Close(); !errors.Is(err, workspace.ErrSaveFailed) {
		t.Errorf("Close err = %v, want ErrSaveFailed", err)
	}

	store.failSave = false
	if err := ed.Close(); err != nil {
		t.Errorf("Close after recovery: %v", err)
	}
}

func TestUnreadableImageKeepsPrevious(t *testing.T) {
	ed, _, _ := newEditor(t)
	if _, err := ed.Open(1); err != nil {
		t.Fatal(err)
	}
	prev := ed.Session()
	prev.AddBox(geometry.BBox{XMax: 3, YMax: 3})

	if _, err := ed.Open(2); err == nil {
		t.Fatal("expected error for a broken image")
	}
	if ed.Index() != 1 || ed.Session() != prev {
		t.Error("previous session should stay active")
	}
	if prev.Dirty {
		t.Error("previous session should have been saved before the failed open")
	}
}

func TestPrevNextAtEdges(t *testing.T) {
	ed, _, _ := newEditor(t)
	if _, err := ed.Open(0); err != nil {
		t.Fatal(err)
	}
	if report, err := ed.Prev(); report != nil || err != nil || ed.Index() != 0 {
		t.Errorf("Prev at start: %v %v index=%d", report, err, ed.Index())
	}
	if _, err := ed.Open(99); err == nil {
		t.Error("expected out of range error")
	}
}

func TestChangedOnDiskAndReload(t *testing.T) {
	ed, _, out := newEditor(t)
	if _, err := ed.Open(0); err != nil {
		t.Fatal(err)
	}
	if changed, err := ed.ChangedOnDisk(); err != nil || changed {
		t.Fatalf("fresh session reported change: %v %v", changed, err)
	}

	touch(t, filepath.Join(out, "a.json"), `{"format_version":"1.0","image":{"file_name":"a.png","relative_path":"a.png","width":40,"height":30},"detections":[{"id":5,"bbox":[1,2,3,4],"score":0.7}]}`)
	if changed, err := ed.ChangedOnDisk(); err != nil || !changed {
		t.Fatalf("external write not detected: %v %v", changed, err)
	}

	if _, err := ed.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !ed.Session().Has(5) {
		t.Error("reloaded session does not see the external detection")
	}

	ed.Session().AddBox(geometry.BBox{XMax: 2, YMax: 2})
	if _, err := ed.Reload(); err == nil {
		t.Error("Reload must refuse to drop unsaved changes")
	}
}
