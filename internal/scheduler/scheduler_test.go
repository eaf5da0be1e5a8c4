package scheduler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/tanq16/downloader/internal/utils"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		io.WriteString(w, content)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func fileServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func testOptions(out io.Writer) Options {
	return Options{
		Output:         out,
		UpdateInterval: 10 * time.Millisecond,
		Config: utils.TransferConfig{
			HTTPClientConfig: utils.HTTPClientConfig{Timeout: 5 * time.Second},
			BufferSize:       utils.MinBufferSize,
		},
	}
}

func TestRunDownloadAndExtract(t *testing.T) {
	binData := bytes.Repeat([]byte{0x42}, 64*1024)
	server := fileServer(t, map[string][]byte{
		"/a.bin": binData,
		"/b.zip": zipBytes(t, map[string]string{"inside/hello.txt": "hello"}),
	})
	root := t.TempDir()
	dir1 := filepath.Join(root, "dir1")
	dir2 := filepath.Join(root, "dir2")

	var out bytes.Buffer
	outcomes, err := Run([]utils.JobDescriptor{
		{Source: server.URL + "/a.bin", DestinationDir: dir1, Extract: true},
		{Source: server.URL + "/b.zip", DestinationDir: dir2, Extract: true},
	}, testOptions(&out))
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}

	got, err := os.ReadFile(filepath.Join(dir1, "a.bin"))
	if err != nil || !bytes.Equal(got, binData) {
		t.Errorf("a.bin not downloaded intact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir2, "b.zip")); !os.IsNotExist(err) {
		t.Error("b.zip should be removed after extraction")
	}
	hello, err := os.ReadFile(filepath.Join(dir2, "inside", "hello.txt"))
	if err != nil || string(hello) != "hello" {
		t.Errorf("archive contents missing: %v", err)
	}

	if outcomes[0].ExtractedTo != "" {
		t.Errorf("a.bin should not be extracted, got %s", outcomes[0].ExtractedTo)
	}
	if outcomes[1].ExtractedTo != dir2 {
		t.Errorf("b.zip extracted to %s, want %s", outcomes[1].ExtractedTo, dir2)
	}
	if outcomes[0].BytesTransferred != int64(len(binData)) || outcomes[0].TotalBytes != int64(len(binData)) {
		t.Errorf("a.bin outcome bytes = %d/%d", outcomes[0].BytesTransferred, outcomes[0].TotalBytes)
	}

	text := out.String()
	for _, line := range []string{
		"File downloaded and saved to: " + filepath.Join(dir1, "a.bin"),
		"Archive extracted to: " + dir2,
	} {
		if c := strings.Count(text, line); c != 1 {
			t.Errorf("expected %q exactly once, found %d times in:\n%s", line, c, text)
		}
	}
}

func TestRunFiveConcurrentJobs(t *testing.T) {
	files := make(map[string][]byte)
	for i := range 4 {
		files[fmt.Sprintf("/file%d.bin", i)] = bytes.Repeat([]byte{byte(i)}, 40*1024+i)
	}
	server := fileServer(t, files)
	srcDir := t.TempDir()
	localSrc := filepath.Join(srcDir, "local.txt")
	os.WriteFile(localSrc, []byte("local data"), 0644)
	dest := t.TempDir()

	var descriptors []utils.JobDescriptor
	for i := range 4 {
		descriptors = append(descriptors, utils.JobDescriptor{Source: fmt.Sprintf("%s/file%d.bin", server.URL, i), DestinationDir: dest})
	}
	descriptors = append(descriptors, utils.JobDescriptor{Source: localSrc, DestinationDir: dest})

	var out bytes.Buffer
	outcomes, err := Run(descriptors, testOptions(&out))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}
	text := out.String()
	for i := range 4 {
		line := "File downloaded and saved to: " + filepath.Join(dest, fmt.Sprintf("file%d.bin", i))
		if c := strings.Count(text, line); c != 1 {
			t.Errorf("expected %q once, found %d", line, c)
		}
	}
	if c := strings.Count(text, "File copied to: "+filepath.Join(dest, "local.txt")); c != 1 {
		t.Errorf("expected copy line once, found %d", c)
	}
	if !strings.Contains(text, "Completed 5 of 5") {
		t.Errorf("missing summary in:\n%s", text)
	}
	for i, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.Count(line, "File ") > 1 {
			t.Errorf("line %d interleaves outcomes: %q", i, line)
		}
	}
}

func TestRunFailureDoesNotAbortSiblings(t *testing.T) {
	server := fileServer(t, map[string][]byte{"/good.bin": []byte("good")})
	dest := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing.txt")

	var out bytes.Buffer
	outcomes, err := Run([]utils.JobDescriptor{
		{Source: server.URL + "/gone.bin", DestinationDir: dest},
		{Source: missing, DestinationDir: dest},
		{Source: server.URL + "/good.bin", DestinationDir: dest},
	}, testOptions(&out))
	if err == nil || err.Error() != "2 of 3 jobs failed" {
		t.Fatalf("expected aggregate failure, got %v", err)
	}
	if !errors.Is(outcomes[0].Err, utils.ErrTransfer) {
		t.Errorf("404 outcome = %v, want ErrTransfer", outcomes[0].Err)
	}
	if !errors.Is(outcomes[1].Err, utils.ErrNotFound) {
		t.Errorf("missing file outcome = %v, want ErrNotFound", outcomes[1].Err)
	}
	if outcomes[2].Failed() {
		t.Errorf("good job failed: %v", outcomes[2].Err)
	}
	if _, err := os.Stat(filepath.Join(dest, "good.bin")); err != nil {
		t.Errorf("sibling download missing: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, server.URL+"/gone.bin: ") || !strings.Contains(text, missing+": ") {
		t.Errorf("error lines should name their source:\n%s", text)
	}
	if !strings.Contains(text, "Failed 2 of 3") {
		t.Errorf("missing failure summary:\n%s", text)
	}
}

func TestRunWithWorkerCap(t *testing.T) {
	srcDir := t.TempDir()
	dest := t.TempDir()
	var descriptors []utils.JobDescriptor
	for i := range 6 {
		src := filepath.Join(srcDir, fmt.Sprintf("f%d.txt", i))
		os.WriteFile(src, []byte(strconv.Itoa(i)), 0644)
		descriptors = append(descriptors, utils.JobDescriptor{Source: src, DestinationDir: dest})
	}
	opts := testOptions(io.Discard)
	opts.Workers = 2
	outcomes, err := Run(descriptors, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, o := range outcomes {
		if o.FilePath != filepath.Join(dest, fmt.Sprintf("f%d.txt", i)) {
			t.Errorf("outcome %d path = %s", i, o.FilePath)
		}
	}
}

func TestRunExtractFailureKeepsArchive(t *testing.T) {
	server := fileServer(t, map[string][]byte{"/bad.zip": []byte("not really a zip")})
	dest := t.TempDir()
	outcomes, err := Run([]utils.JobDescriptor{
		{Source: server.URL + "/bad.zip", DestinationDir: dest, Extract: true},
	}, testOptions(io.Discard))
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(outcomes[0].Err, utils.ErrExtraction) {
		t.Errorf("outcome = %v, want ErrExtraction", outcomes[0].Err)
	}
	if _, err := os.Stat(filepath.Join(dest, "bad.zip")); err != nil {
		t.Errorf("archive should remain after failed extraction: %v", err)
	}
}
