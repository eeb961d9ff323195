package findduplicatefiles

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"syscall"

	"github.com/google/vectorio"
)

// iovMax bounds the iovecs passed to one writev call (see golang/go#58623)
const iovMax = 1024

// WriteReport writes result groups to w in the given format. An empty result
// set writes "[]" in json format and nothing in fdupes format.
func WriteReport(w io.Writer, groups []ResultGroup, format string) error {
	switch format {
	case FormatHuman, "":
		return writeHumanReport(w, groups)
	case FormatJSON:
		if groups == nil {
			groups = []ResultGroup{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(groups)
	case FormatFdupes:
		return writeFdupesReport(w, groups)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeHumanReport(w io.Writer, groups []ResultGroup) error {
	bw := bufio.NewWriter(w)

	if len(groups) == 0 {
		fmt.Fprintln(bw, "No duplicate files found")
		return bw.Flush()
	}

	var wasted int64
	for _, group := range groups {
		if group.TotalSize != nil {
			perFile := *group.TotalSize / int64(group.Count)
			wasted += *group.TotalSize - perFile
			fmt.Fprintf(bw, "Group %d: %d files, %s each\n", group.Ordinal, group.Count, FormatHumanSize(perFile))
		} else {
			fmt.Fprintf(bw, "Group %d: %d files\n", group.Ordinal, group.Count)
		}
		for _, path := range group.Files {
			fmt.Fprintf(bw, "  %s\n", path)
		}
	}

	fmt.Fprintf(bw, "\n%d duplicate groups", len(groups))
	if wasted > 0 {
		fmt.Fprintf(bw, ", %s reclaimable", FormatHumanSize(wasted))
	}
	fmt.Fprintln(bw)

	return bw.Flush()
}

// writeFdupesReport prints paths one per line with a blank line after each
// group. Files get the lines through writev, other writers through a buffer.
func writeFdupesReport(w io.Writer, groups []ResultGroup) error {
	var lines [][]byte
	blank := []byte("\n")
	for _, group := range groups {
		for _, path := range group.Files {
			lines = append(lines, []byte(path+"\n"))
		}
		lines = append(lines, blank)
	}

	if f, ok := w.(*os.File); ok {
		return writeVectored(f, lines)
	}

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeVectored writes bufs to f with as few writev calls as possible,
// resuming after partial writes. bufs must not contain empty slices.
func writeVectored(f *os.File, bufs [][]byte) error {
	for len(bufs) > 0 {
		n := min(len(bufs), iovMax)
		iovecs := make([]syscall.Iovec, n)
		for i := range iovecs {
			iovecs[i].Base = &bufs[i][0]
			iovecs[i].SetLen(len(bufs[i]))
		}

		written, err := vectorio.WritevRaw(uintptr(f.Fd()), iovecs)
		runtime.KeepAlive(bufs)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return fmt.Errorf("failed to write report with vectorio: %w", err)
		}
		if written == 0 {
			return io.ErrShortWrite
		}

		for written > 0 {
			if written >= len(bufs[0]) {
				written -= len(bufs[0])
				bufs = bufs[1:]
			} else {
				bufs[0] = bufs[0][written:]
				written = 0
			}
		}
	}
	return nil
}
