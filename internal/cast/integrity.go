package cast

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LineDiagnostic describes a single corrupt line found while diagnosing a
// cast file.
type LineDiagnostic struct {
	LineNumber int
	Reason     string
	ByteLen    int
}

// DiagnoseResult summarises a full-file integrity scan.
type DiagnoseResult struct {
	TotalLines      int
	ValidEventLines int
	BadLines        []LineDiagnostic
}

// Diagnose scans every line of a cast file without failing, collecting
// information about every line that cannot be parsed as a valid event.
// The header occupies line 1; subsequent lines are numbered from 2.
func Diagnose(path string) (*DiagnoseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header line: %w", err)
		}
		return nil, fmt.Errorf("file is empty")
	}
	var header Header
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if header.Version != SupportedVersion {
		return nil, fmt.Errorf("only asciicast v%d format is supported (got version %d)", SupportedVersion, header.Version)
	}

	result := &DiagnoseResult{TotalLines: 1}
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		result.TotalLines++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.ContainsRune(line, 0) {
			result.BadLines = append(result.BadLines, LineDiagnostic{
				LineNumber: lineNum,
				Reason:     "contains null bytes (file corruption)",
				ByteLen:    len(line),
			})
			continue
		}

		if _, err := FromJSON(line); err != nil {
			result.BadLines = append(result.BadLines, LineDiagnostic{
				LineNumber: lineNum,
				Reason:     err.Error(),
				ByteLen:    len(line),
			})
			continue
		}
		result.ValidEventLines++
	}
	if err := scanner.Err(); err != nil {
		result.BadLines = append(result.BadLines, LineDiagnostic{
			LineNumber: lineNum + 1,
			Reason:     fmt.Sprintf("I/O error: %v", err),
			ByteLen:    0,
		})
	}

	return result, nil
}

// Repair rewrites a cast file keeping only the header and valid event
// lines, writing the result atomically. Returns the number of lines
// removed.
func Repair(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) == 0 {
		return 0, fmt.Errorf("file is empty")
	}
	headerLine := lines[0]
	var header Header
	if err := json.Unmarshal([]byte(headerLine), &header); err != nil {
		return 0, fmt.Errorf("failed to parse header: %w", err)
	}
	if header.Version != SupportedVersion {
		return 0, fmt.Errorf("only asciicast v%d format is supported (got version %d)", SupportedVersion, header.Version)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(headerLine + "\n"); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("write header: %w", err)
	}

	removed := 0
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.ContainsRune(line, 0) {
			removed++
			continue
		}
		if _, err := FromJSON(line); err != nil {
			removed++
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			os.Remove(tmp)
			return 0, fmt.Errorf("write event: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to replace file: %w", err)
	}

	return removed, nil
}
