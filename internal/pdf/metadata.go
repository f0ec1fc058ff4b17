package pdf

import (
	"bytes"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/euel88/law-chatbot/internal/logger"
)

// metadataAliases maps each reported metadata key to the Info dictionary
// entries it may be stored under, most common first.
var metadataAliases = []struct {
	key     string
	aliases []string
}{
	{"title", []string{"Title", "dc:title"}},
	{"author", []string{"Author", "Authors", "dc:creator"}},
	{"subject", []string{"Subject", "Description", "dc:description"}},
	{"keywords", []string{"Keywords", "Keyword", "pdf:Keywords"}},
	{"creator", []string{"Creator", "CreatorTool", "xmp:CreatorTool"}},
	{"producer", []string{"Producer", "pdf:Producer"}},
	{"creationDate", []string{"CreationDate", "Created", "xmp:CreateDate"}},
	{"modDate", []string{"ModDate", "ModificationDate", "LastModified", "xmp:ModifyDate"}},
}

// lookupAlias returns the first non-empty value stored under one of aliases.
// Exact key matches win over case-insensitive ones.
func lookupAlias(record map[string]string, aliases ...string) (string, bool) {
	for _, a := range aliases {
		if v, ok := record[a]; ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	for _, a := range aliases {
		for k, v := range record {
			if strings.EqualFold(k, a) && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
	}
	return "", false
}

// readMetadata returns the document's Info dictionary under normalised keys.
// Every key is present; missing entries are empty.
func readMetadata(doc *Document) map[string]string {
	meta := map[string]string{"format": pdfFormat(doc.Bytes())}
	record := infoRecord(doc)
	for _, m := range metadataAliases {
		v, _ := lookupAlias(record, m.aliases...)
		meta[m.key] = v
	}
	return meta
}

func infoRecord(doc *Document) (record map[string]string) {
	record = make(map[string]string)
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("failed to read document info", logger.Any("cause", r))
		}
	}()

	doc.mu.Lock()
	reader := doc.reader
	doc.mu.Unlock()
	if reader == nil {
		return record
	}

	info := reader.Trailer().Key("Info")
	if info.Kind() != lpdf.Dict {
		return record
	}
	for _, k := range info.Keys() {
		v := info.Key(k)
		switch v.Kind() {
		case lpdf.String:
			record[k] = v.Text()
		case lpdf.Name:
			record[k] = v.Name()
		}
	}
	return record
}

// pdfFormat returns "PDF 1.x" from the file header.
func pdfFormat(data []byte) string {
	i := bytes.Index(data, []byte("%PDF-"))
	if i < 0 {
		return ""
	}
	rest := data[i+5:]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	if end == 0 {
		return ""
	}
	return "PDF " + string(rest[:end])
}
