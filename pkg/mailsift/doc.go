// Package mailsift parses raw email messages (headers plus free-text body,
// as found in the Enron corpus) into normalized records: the header block
// is separated from the body, selected header fields are extracted, the
// subject is reduced to a thread key and the body is whitespace
// normalized. Optionally, entities (PII) are tagged with a local ONNX
// token classification model.
//
// Quick start:
//
//	p, err := mailsift.New(mailsift.WithSentinel("X-FileName"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	rec := p.Parse("allen-p/_sent_mail/1.", raw)
//	fmt.Println(rec.Subject, rec.Body)
//
// Parsing never fails: malformed input yields empty fields. A Parser is
// safe for concurrent use.
package mailsift
