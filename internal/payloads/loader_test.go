package payloads

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writePayloads(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payloads.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr error
	}{
		{
			name:    "blank lines dropped",
			content: "<script>1</script>\n\n  \n<img src=x>\n",
			want:    []string{"<script>1</script>", "<img src=x>"},
		},
		{
			name:    "whitespace trimmed",
			content: "\t<svg onload=alert(1)>  \r\n",
			want:    []string{"<svg onload=alert(1)>"},
		},
		{
			name:    "duplicates kept in order",
			content: "b\na\nb\n",
			want:    []string{"b", "a", "b"},
		},
		{
			name:    "hash lines are payloads",
			content: "#<img src=x>\n",
			want:    []string{"#<img src=x>"},
		},
		{
			name:    "no trailing newline",
			content: "a\nb",
			want:    []string{"a", "b"},
		},
		{
			name:    "empty file",
			content: "",
			wantErr: ErrEmpty,
		},
		{
			name:    "only whitespace",
			content: "\n   \n\t\n",
			wantErr: ErrEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadFromFile(writePayloads(t, tt.content))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LoadFromFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromFile() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LoadFromFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadFromFile() error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "missing.txt") {
		t.Errorf("error should name the file, got %q", err.Error())
	}
}

func TestRead_LongLine(t *testing.T) {
	long := strings.Repeat("A", 200*1024)
	got, err := Read(strings.NewReader(long + "\n"))
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0]) != len(long) {
		t.Errorf("Read() did not keep the long payload intact")
	}
}
