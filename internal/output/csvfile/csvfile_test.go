package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/output"
)

var testLayout = output.Layout{Keys: []string{"Subject", "X-Folder"}, Entities: true}

func testRecord(i int) model.NormalizedRecord {
	return model.NormalizedRecord{
		File:    fmt.Sprintf("allen-p/inbox/%d.", i),
		Headers: "Subject: Re: Budget\nX-Folder: inbox",
		Fields: model.Fields{
			{Key: "Subject", Value: "Re: Budget"},
			{Key: "X-Folder", Value: "inbox"},
		},
		Subject:  "Budget",
		Body:     "line one\n\nline \"two\", with comma",
		Entities: []model.Entity{{Group: "NAME", Score: 0.9, Word: "Kay", Start: 0, End: 3}},
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestWriteProducesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	out, err := New(path, testLayout)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := out.Write(context.Background(), testRecord(i)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
	want := []string{"file", "X-Folder", "Headers", "Subject", "Body", "pii_entities"}
	if !reflect.DeepEqual(rows[0], want) {
		t.Fatalf("header = %v, want %v", rows[0], want)
	}
	if rows[1][0] != "allen-p/inbox/0." || rows[1][1] != "inbox" || rows[1][3] != "Budget" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
	if rows[1][4] != "line one\n\nline \"two\", with comma" {
		t.Fatalf("body did not round-trip: %q", rows[1][4])
	}
}

func TestTruncatesByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	for run := 0; run < 2; run++ {
		out, err := New(path, testLayout)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		out.Write(context.Background(), testRecord(run))
		out.Close()
	}
	if rows := readAll(t, path); len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestAppendSkipsSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	for run := 0; run < 2; run++ {
		out, err := New(path, testLayout, WithAppend())
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		out.Write(context.Background(), testRecord(run))
		out.Close()
	}
	if rows := readAll(t, path); len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
}

func TestRotationTriggersAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	// Each row is well over 100 bytes, so every write after the first rotates.
	out, err := New(path, testLayout, WithMaxSize(100))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := out.Write(context.Background(), testRecord(i)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	out.Close()

	for _, p := range []string{path, path + ".1", path + ".2"} {
		rows := readAll(t, p)
		if len(rows) != 2 {
			t.Errorf("%s: got %d rows, want header + 1", filepath.Base(p), len(rows))
		}
	}
}

func TestConcurrentWritesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	out, err := New(path, testLayout)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out.Write(context.Background(), testRecord(i))
		}(i)
	}
	wg.Wait()
	out.Close()

	if rows := readAll(t, path); len(rows) != 51 {
		t.Errorf("got %d rows, want 51", len(rows))
	}
}

func TestOpenError(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "out.csv"), testLayout)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
