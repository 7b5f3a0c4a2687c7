package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	werrors "github.com/daimoniac/waiverreport/internal/errors"
	"github.com/daimoniac/waiverreport/internal/types"
)

const fullWaiverJSON = `{
  "repositoryWaivers": [
    {
      "repository": {"publicId": "payments-service"},
      "stages": [
        {
          "stageId": "build",
          "componentPolicyViolations": [
            {
              "component": {
                "componentIdentifier": {
                  "format": "maven",
                  "coordinates": {"artifactId": "commons-text", "groupId": "org.apache.commons", "version": "1.9"}
                }
              },
              "waivedPolicyViolations": [
                {
                  "policyName": "Security-High",
                  "threatLevel": "5",
                  "policyWaiver": {
                    "reasonText": "Not reachable, see ticket SEC-42",
                    "createTime": "2024-01-15T10:30:00.123456+0000",
                    "expiryTime": "2024-07-15T00:00:00.000000+0000"
                  }
                }
              ]
            }
          ]
        }
      ]
    }
  ]
}`

func decode(t *testing.T, body string) *types.WaiverReport {
	t.Helper()
	var doc types.WaiverReport
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	return &doc
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	return records
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestFlatten_FullRecord(t *testing.T) {
	rows := Flatten(decode(t, fullWaiverJSON), testLogger())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	want := []string{
		"payments-service",
		"maven",
		"commons-text",
		"org.apache.commons",
		"1.9",
		"2024-01-15 10:30:00",
		"2024-07-15 00:00:00",
		"Not reachable, see ticket SEC-42",
		"Security-High",
		"5",
	}
	if got := rows[0].ToSlice(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToSlice() =\n%v\nwant\n%v", got, want)
	}

	expires, ok := rows[0].ExpiresAt()
	if !ok {
		t.Fatal("expected expiry to be available")
	}
	if expires.Year() != 2024 || expires.Month() != 7 || expires.Day() != 15 {
		t.Errorf("ExpiresAt() = %v", expires)
	}
}

func TestFlatten_MissingOrEmptyList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLog string
	}{
		{name: "missing key", body: `{}`, wantLog: "no repositoryWaivers key found"},
		{name: "empty list", body: `{"repositoryWaivers": []}`, wantLog: "no repository waivers found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			rows := Flatten(decode(t, tt.body), logger)
			if len(rows) != 0 {
				t.Errorf("expected no rows, got %d", len(rows))
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("expected log %q, got %q", tt.wantLog, logs.String())
			}

			var out bytes.Buffer
			if err := WriteCSV(&out, rows); err != nil {
				t.Fatalf("WriteCSV() error = %v", err)
			}
			records := readCSV(t, out.Bytes())
			if len(records) != 1 {
				t.Errorf("expected header only, got %d records", len(records))
			}
		})
	}
}

func TestFlatten_DefaultsMissingFields(t *testing.T) {
	body := `{"repositoryWaivers": [{
		"stages": [{"componentPolicyViolations": [{
			"component": {"componentIdentifier": {"coordinates": {"artifactId": "lodash"}}},
			"waivedPolicyViolations": [
				{"threatLevel": 7},
				{"policyName": "License", "policyWaiver": {"expiryTime": "N/A", "createTime": "not-a-date"}}
			]
		}]}]
	}]}`

	rows := Flatten(decode(t, body), testLogger())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	want := [][]string{
		{"N/A", "N/A", "lodash", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "7"},
		{"N/A", "N/A", "lodash", "N/A", "N/A", "Invalid Date", "N/A", "N/A", "License", "0"},
	}
	for i, row := range rows {
		if got := row.ToSlice(); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("row %d = %v, want %v", i, got, want[i])
		}
	}

	if _, ok := rows[1].ExpiresAt(); ok {
		t.Error("expected no expiry for N/A timestamp")
	}
}

func TestFlatten_DocumentOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"repositoryWaivers": [`)
	for r := 0; r < 2; r++ {
		if r > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"repository": {"publicId": "repo-%d"}, "stages": [{"componentPolicyViolations": [{
			"waivedPolicyViolations": [{"policyName": "p-%d-0"}, {"policyName": "p-%d-1"}]
		}]}]}`, r, r, r)
	}
	b.WriteString(`]}`)

	rows := Flatten(decode(t, b.String()), testLogger())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	wantOrder := []string{"repo-0/p-0-0", "repo-0/p-0-1", "repo-1/p-1-0", "repo-1/p-1-1"}
	for i, row := range rows {
		if got := row.RepositoryID + "/" + row.PolicyName; got != wantOrder[i] {
			t.Errorf("row %d = %s, want %s", i, got, wantOrder[i])
		}
	}
}

func TestFlatten_NilLogger(t *testing.T) {
	rows := Flatten(decode(t, fullWaiverJSON), nil)
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
}

func TestWriteCSV_HeaderAndQuoting(t *testing.T) {
	rows := Flatten(decode(t, fullWaiverJSON), testLogger())

	var out bytes.Buffer
	if err := WriteCSV(&out, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	if !strings.HasSuffix(out.String(), "\r\n") {
		t.Errorf("expected CRLF record terminator, got %q", out.String())
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and 1 record, got %d lines: %q", len(lines), out.String())
	}
	wantHeader := "Repository Public ID,Component Format,Component Artifact ID,Component Group ID," +
		"Component Version,Create Time,Expiry Time,Reason Text,Policy Name,Threat Level"
	if lines[0] != wantHeader {
		t.Errorf("header = %q, want %q", lines[0], wantHeader)
	}
	if !strings.Contains(out.String(), `"Not reachable, see ticket SEC-42"`) {
		t.Error("expected reason text containing a comma to be quoted")
	}
}

func TestWriteCSV_EmptyReportIsHeaderOnly(t *testing.T) {
	var out bytes.Buffer
	if err := WriteCSV(&out, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := strings.Join(Header, ",") + "\r\n"
	if out.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", out.String(), want)
	}
}

func TestFlatten_MistypedScalarsStillProduceRow(t *testing.T) {
	body := `{"repositoryWaivers": [{
	  "repository": {"publicId": 1234},
	  "stages": [{"componentPolicyViolations": [{
	    "component": {"componentIdentifier": {"format": "maven", "coordinates": {"artifactId": "lib", "groupId": "org.example", "version": 1.5}}},
	    "waivedPolicyViolations": [{
	      "policyName": "License",
	      "threatLevel": 2,
	      "policyWaiver": {"reasonText": true, "createTime": 1705314600000, "expiryTime": "N/A"}
	    }]
	  }]}]
	}]}`

	rows := Flatten(decode(t, body), testLogger())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	want := []string{"1234", "maven", "lib", "org.example", "1.5", InvalidDate, "N/A", "true", "License", "2"}
	if got := rows[0].ToSlice(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToSlice() =\n%v\nwant\n%v", got, want)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repository_waivers.csv")
	if err := os.WriteFile(path, []byte("stale content that must disappear\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rows := Flatten(decode(t, fullWaiverJSON), testLogger())
	if err := WriteFile(path, rows); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("expected existing content to be truncated")
	}
	if records := readCSV(t, data); len(records) != 2 {
		t.Errorf("expected header and 1 row, got %d records", len(records))
	}
}

func TestWriteFile_UnwritableDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.csv")

	err := WriteFile(path, nil)
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if !werrors.IsFile(err) {
		t.Errorf("expected FileError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected error to wrap os.ErrNotExist, got %v", err)
	}
}
