package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/mailsift/internal/engine"
	"github.com/crimson-sun/mailsift/internal/engine/fields"
	"github.com/crimson-sun/mailsift/internal/engine/header"
	"github.com/crimson-sun/mailsift/internal/engine/tagger/onnx"
	"github.com/crimson-sun/mailsift/internal/output"
	"github.com/crimson-sun/mailsift/internal/output/sqlite"
	"github.com/crimson-sun/mailsift/internal/source"

	_ "github.com/crimson-sun/mailsift/internal/source/csvsource"
)

// Model directory relative to internal/pipeline/.
const integrationModelDir = "../../models/pii"

const enronCSV = `file,message
allen-p/_sent_mail/1.,"Message-ID: <18782981.1075855378110.JavaMail.evans@thyme>
Date: Mon, 14 May 2001 16:39:00 -0700 (PDT)
From: phillip.allen@enron.com
To: tim.belden@enron.com
Subject: Re:  Forecast
X-Folder: \Phillip_Allen_Jan2002_1\Allen, Phillip K.\'Sent Mail
X-FileName: pallen (Non-Privileged).pst

Here is our forecast....


Call  me at 713-853-7041"
allen-p/_sent_mail/10.,"Message-ID: <15464986.1075855378456.JavaMail.evans@thyme>
Subject: FW: Forecast
X-FileName: pallen (Non-Privileged).pst
Traveling to have a business meeting takes the fun out of the trip."
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.csv")
	require.NoError(t, os.WriteFile(path, []byte(enronCSV), 0o644))
	return path
}

func newCSVSource(t *testing.T) source.Source {
	t.Helper()
	ctor, err := source.Get("csv")
	require.NoError(t, err)
	return ctor()
}

func TestIntegration_CSVToSQLite(t *testing.T) {
	keys := []string{"Subject", "X-Folder"}
	eng := engine.New(engine.Config{
		Header: header.Config{Strategy: header.Sentinel},
		Fields: keys,
	})
	out, err := sqlite.New(":memory:", output.Layout{Keys: keys})
	require.NoError(t, err)

	p := New(newCSVSource(t), eng, out)
	defer p.Close()

	report, err := p.Run(context.Background(), source.Config{Provider: "csv", Path: writeCorpus(t)})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)

	rows, err := out.Records(context.Background(), out.RunID())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "allen-p/_sent_mail/1.", rows[0].File)
	assert.Equal(t, "Forecast", rows[0].Subject)
	assert.Equal(t, `\Phillip_Allen_Jan2002_1\Allen, Phillip K.\'Sent Mail`, rows[0].XFolder)
	assert.Equal(t, "Here is our forecast.\n\nCall me at 713-853-7041", rows[0].Body)
	assert.True(t, strings.HasPrefix(rows[0].Headers, "Message-ID:"))

	// Both messages share a thread key.
	assert.Equal(t, rows[0].Subject, rows[1].Subject)
	assert.Equal(t, "Traveling to have a business meeting takes the fun out of the trip.", rows[1].Body)
}

func TestIntegration_ProjectionWithModel(t *testing.T) {
	if _, err := os.Stat(filepath.Join(integrationModelDir, "model.onnx")); os.IsNotExist(err) {
		t.Skip("PII model not available, skipping integration test")
	}

	tg, err := onnx.New(integrationModelDir, onnx.WithMinScore(0.5))
	require.NoError(t, err)

	eng := engine.New(engine.Config{
		Header:     header.Config{Strategy: header.Sentinel},
		Fields:     fields.EnronHeaders,
		HeaderMode: engine.Projection,
	})
	out := &mockOutput{}
	p := New(newCSVSource(t), eng, out, WithTagger(tg))
	defer p.Close()

	report, err := p.Run(context.Background(), source.Config{Provider: "csv", Path: writeCorpus(t)})
	require.NoError(t, err)
	assert.Zero(t, report.ClassificationFailures)
	require.Len(t, out.records, 2)
	for _, rec := range out.records {
		assert.NotNil(t, rec.Entities)
		assert.Contains(t, rec.Headers, " | X-FileName: pallen (Non-Privileged).pst")
	}
}
