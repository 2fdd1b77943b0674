package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/mailsift/internal/engine/fields"
	"github.com/crimson-sun/mailsift/internal/engine/header"
	"github.com/crimson-sun/mailsift/internal/engine/textnorm"
	"github.com/crimson-sun/mailsift/internal/model"
)

const enronMessage = "Message-ID: <1.JavaMail.evans@thyme>\r\n" +
	"Date: Mon, 14 May 2001 16:39:00 -0700 (PDT)\r\n" +
	"From: phillip.allen@enron.com\r\n" +
	"To: tim.belden@enron.com\r\n" +
	"Subject: RE: Fw:  Q3   Budget\r\n" +
	"X-Folder: \\Phillip_Allen_Dec2000\\Notes Folders\\All documents\r\n" +
	"X-FileName: pallen.nsf\r\n" +
	"\r\n" +
	"Here   is the\tforecast.....\r\n\r\n\r\n\r\nThanks,\r\nPhillip  \r\n"

func TestProcessBlankLineVerbatim(t *testing.T) {
	eng := New(Config{Fields: []string{"X-Folder", "Subject"}})

	rec := eng.Process(model.RawRecord{File: "allen-p/all_documents/1.", Message: enronMessage})

	assert.Equal(t, "allen-p/all_documents/1.", rec.File)
	assert.Contains(t, rec.Headers, "Subject: RE: Fw:  Q3   Budget")
	assert.NotContains(t, rec.Headers, "\r")
	assert.Equal(t, `\Phillip_Allen_Dec2000\Notes Folders\All documents`, rec.Fields.Get("X-Folder"))
	assert.Equal(t, "RE: Fw:  Q3   Budget", rec.Fields.Get("Subject"))
	assert.Equal(t, "Q3   Budget", rec.Subject)
	assert.Equal(t, "Here is the forecast.\n\nThanks,\nPhillip", rec.Body)
	assert.Nil(t, rec.Entities)
}

func TestProcessSentinelProjection(t *testing.T) {
	eng := New(Config{
		Header:     header.Config{Strategy: header.Sentinel},
		Fields:     fields.EnronHeaders,
		HeaderMode: Projection,
		BlankLines: textnorm.SingleNewline,
	})

	rec := eng.Process(model.RawRecord{File: "f", Message: enronMessage})

	assert.Contains(t, rec.Headers, "Message-ID: <1.JavaMail.evans@thyme> | Date: ")
	assert.Contains(t, rec.Headers, " | Mime-Version:  | ")
	assert.Contains(t, rec.Headers, "X-FileName: pallen.nsf")
	assert.Equal(t, "Here is the forecast.\nThanks,\nPhillip", rec.Body)
	assert.Len(t, rec.Fields, len(fields.EnronHeaders))
}

func TestProcessNormalizeHeaders(t *testing.T) {
	eng := New(Config{Fields: []string{"Subject"}, NormalizeHeaders: true})
	rec := eng.Process(model.RawRecord{Message: "Subject:  a   b...\nTo:\t\tx\n\nbody"})

	assert.Equal(t, "Subject: a b.\nTo: x", rec.Headers)
	assert.Equal(t, "a b.", rec.Fields.Get("Subject"))
	assert.Equal(t, "a b.", rec.Subject)
}

func TestProcessWithoutSubjectKey(t *testing.T) {
	eng := New(Config{Fields: []string{"X-Folder"}})
	rec := eng.Process(model.RawRecord{Message: "Subject: Re: hi\n\nbody"})
	assert.Equal(t, "", rec.Subject)
}

func TestProcessMalformed(t *testing.T) {
	eng := New(Config{Header: header.Config{Strategy: header.Sentinel}, Fields: []string{"Subject"}})
	for _, msg := range []string{"", "   ", "no headers at all", "\r\n\r\n"} {
		rec := eng.Process(model.RawRecord{File: "x", Message: msg})
		assert.Equal(t, "x", rec.File)
		assert.Equal(t, "", rec.Subject)
	}
}

func TestProcessBatchOneToOne(t *testing.T) {
	eng := New(Config{Fields: []string{"Subject"}})
	raws := make([]model.RawRecord, 25)
	for i := range raws {
		raws[i] = model.RawRecord{File: fmt.Sprint(i), Message: fmt.Sprintf("Subject: Re: %d\n\nbody %d", i, i)}
	}
	raws[7].Message = ""

	out := eng.ProcessBatch(raws)
	require.Len(t, out, len(raws))
	for i, rec := range out {
		assert.Equal(t, fmt.Sprint(i), rec.File)
	}
	assert.Equal(t, "3", out[3].Subject)
	assert.Equal(t, "", out[7].Body)
}

func TestParseHeaderMode(t *testing.T) {
	assert.Equal(t, Projection, ParseHeaderMode("projection"))
	assert.Equal(t, Verbatim, ParseHeaderMode("verbatim"))
	assert.Equal(t, Verbatim, ParseHeaderMode(""))
}
