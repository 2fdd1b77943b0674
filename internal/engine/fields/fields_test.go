package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = `Message-ID: <18782981.1075855378110.JavaMail.evans@thyme>
Date: Mon, 14 May 2001 16:39:00 -0700 (PDT)
From: phillip.allen@enron.com
To: tim.belden@enron.com
Subject: Re: Fwd: Forecast
X-Folder: \Phillip_Allen_Jan2002_1\Allen, Phillip K.\'Sent Mail
X-FileName: pallen (Non-Privileged).pst`

func TestSelectRoundTrip(t *testing.T) {
	keys := []string{"X-Folder", "Subject", "From", "Message-ID"}
	got := New(keys).Select(sampleHeader)

	require.Len(t, got, 4)
	assert.Equal(t, `\Phillip_Allen_Jan2002_1\Allen, Phillip K.\'Sent Mail`, got.Get("X-Folder"))
	assert.Equal(t, "Re: Fwd: Forecast", got.Get("Subject"))
	assert.Equal(t, "phillip.allen@enron.com", got.Get("From"))
	assert.Equal(t, "<18782981.1075855378110.JavaMail.evans@thyme>", got.Get("Message-ID"))

	// Request order is preserved and does not change values.
	reversed := New([]string{"Message-ID", "From", "Subject", "X-Folder"}).Select(sampleHeader)
	for _, k := range keys {
		assert.Equal(t, got.Get(k), reversed.Get(k), k)
	}
	assert.Equal(t, "Message-ID", reversed[0].Key)
}

func TestSelectFirstMatchWins(t *testing.T) {
	got := New([]string{"Subject"}).Select("Subject: A\nFrom: x\nSubject: B")
	assert.Equal(t, "A", got.Get("Subject"))
}

func TestSelectCaseInsensitiveAndMissing(t *testing.T) {
	got := New([]string{"subject", "X-CC", "To"}).Select("SUBJECT:   spaced  \nx-cc: a@b\n")
	assert.Equal(t, "spaced", got.Get("subject"))
	assert.Equal(t, "a@b", got.Get("X-CC"))
	assert.Equal(t, "", got.Get("To"))
	assert.True(t, got.Has("To"))
}

func TestSelectEmptyValueDoesNotSpanLines(t *testing.T) {
	got := New([]string{"Subject"}).Select("Subject:\nX-Folder: inbox")
	assert.Equal(t, "", got.Get("Subject"))
}

func TestSelectTotal(t *testing.T) {
	s := New(EnronHeaders)
	for _, in := range []string{"", "   ", "no headers at all", ":::", "\r\n"} {
		got := s.Select(in)
		assert.Len(t, got, len(EnronHeaders))
	}
}

func TestProject(t *testing.T) {
	got := New([]string{"Subject", "To", "X-Folder"}).Select("X-Folder: inbox\nSubject: Hi")
	assert.Equal(t, "Subject: Hi | To:  | X-Folder: inbox", got.Project())
}

func TestLookup(t *testing.T) {
	assert.Equal(t, "tim.belden@enron.com", Lookup(sampleHeader, "to"))
	assert.Equal(t, "", Lookup(sampleHeader, "Cc"))
}

func TestDecodeWords(t *testing.T) {
	hdr := "Subject: =?utf-8?q?Caf=C3=A9_meeting?=\nFrom: plain@enron.com"

	plain := New([]string{"Subject"}).Select(hdr)
	assert.Equal(t, "=?utf-8?q?Caf=C3=A9_meeting?=", plain.Get("Subject"))

	decoded := New([]string{"Subject", "From"}, WithDecodeWords()).Select(hdr)
	assert.Equal(t, "Café meeting", decoded.Get("Subject"))
	assert.Equal(t, "plain@enron.com", decoded.Get("From"))
}
