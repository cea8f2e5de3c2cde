package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeExtension(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"jpg", ".jpg", false},
		{"JPG", ".jpg", false},
		{".JPEG", ".jpg", false},
		{"image/jpeg", ".jpg", false},
		{"png", ".png", false},
		{"image/png; charset=binary", ".png", false},
		{"gif", ".gif", false},
		{"image/gif", ".gif", false},
		{"webp", "", true},
		{"image/webp", "", true},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeExtension(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedType) {
					t.Fatalf("NormalizeExtension(%q) err = %v, want ErrUnsupportedType", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeExtension(%q) err = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeExtension(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDir_ReusesPreferredWhenEmpty(t *testing.T) {
	tmp := t.TempDir()
	preferred := filepath.Join(tmp, "scratch")
	if err := os.MkdirAll(preferred, 0o700); err != nil {
		t.Fatal(err)
	}

	s := NewStore(preferred, nil)
	dir, err := s.Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != preferred {
		t.Errorf("Dir() = %q, want empty preferred dir %q reused", dir, preferred)
	}

	// Memoized: second call returns the same handle.
	again, err := s.Dir()
	if err != nil || again != dir {
		t.Errorf("Dir() not memoized: %q vs %q (err %v)", again, dir, err)
	}
}

func TestDir_ProbesSuffixWhenOccupied(t *testing.T) {
	tmp := t.TempDir()
	preferred := filepath.Join(tmp, "scratch")
	if err := os.MkdirAll(preferred, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(preferred, "occupied.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(preferred, nil)
	dir, err := s.Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != preferred+"-1" {
		t.Errorf("Dir() = %q, want %q", dir, preferred+"-1")
	}
}

func TestNextFilename_MonotonicCounter(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "scratch"), nil)

	first, err := s.NextFilename("png")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.NextFilename(".JPEG")
	if err != nil {
		t.Fatal(err)
	}
	if first != "1.png" || second != "2.jpg" {
		t.Errorf("filenames = %q, %q; want 1.png, 2.jpg", first, second)
	}

	if _, err := s.NextFilename("bmp"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("unsupported extension err = %v, want ErrUnsupportedType", err)
	}

	// Counter advances even across failed allocations' neighbors and is
	// never reused after deletion.
	third, err := s.NextFilename("gif")
	if err != nil {
		t.Fatal(err)
	}
	if third != "3.gif" {
		t.Errorf("third filename = %q, want 3.gif", third)
	}
}

func TestFetch_LocalCopy(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "photo.PNG")
	if err := os.WriteFile(src, []byte("png bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(filepath.Join(tmp, "scratch"), nil)
	name, err := s.Fetch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if name != "1.png" {
		t.Errorf("Fetch returned %q, want bare filename 1.png", name)
	}
	data, err := s.Read(name)
	if err != nil || string(data) != "png bytes" {
		t.Errorf("scratch file content = %q (err %v)", data, err)
	}
}

func TestFetch_Download(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantErr     error
	}{
		{"success", http.StatusOK, "image/jpeg", "jpeg bytes", nil},
		{"bad status", http.StatusNotFound, "image/jpeg", "nope", ErrBadStatus},
		{"unsupported content type", http.StatusOK, "text/html", "<html>", ErrUnsupportedType},
		{"empty body", http.StatusOK, "image/png", "", ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			s := NewStore(filepath.Join(t.TempDir(), "scratch"), nil)
			name, err := s.Fetch(context.Background(), srv.URL)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fetch err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasSuffix(name, ".jpg") {
				t.Errorf("downloaded filename = %q, want .jpg extension", name)
			}
		})
	}
}

func TestEdit(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "pic.gif")
	if err := os.WriteFile(src, []byte("gif"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(filepath.Join(tmp, "scratch"), nil)
	name, err := s.Fetch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	var edited []string
	err = s.Edit([]string{name, "missing.png"}, func(path string) error {
		edited = append(edited, filepath.Base(path))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(edited) != 1 || edited[0] != name {
		t.Errorf("edited = %v, want only %q", edited, name)
	}

	// Nil edit function is a no-op.
	if err := s.Edit([]string{name}, nil); err != nil {
		t.Errorf("nil edit fn returned %v", err)
	}
}

func TestEnqueueDelete_ReconcilesAndReclaims(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "pic.jpg")
	if err := os.WriteFile(src, []byte("jpg"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(filepath.Join(tmp, "scratch"), nil)
	name, err := s.Fetch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	dir, _ := s.Dir()

	// A name that never existed reconciles away without error; the real
	// file is deleted and the empty directory reclaimed.
	s.EnqueueDelete("phantom.png", name)

	if got := s.PendingDeletes(); got != 0 {
		t.Errorf("PendingDeletes = %d, want 0", got)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Errorf("scratch file still present after cleanup")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("empty scratch directory was not reclaimed")
	}
}
