package service

import (
	"strings"
	"time"

	"announcement_syncer/internal/domain"
)

// MapRecord converts one upstream record into an announcement attributed to
// regDate. It returns nil when the record has no itemId to key the upsert on.
func MapRecord(raw domain.RawRecord, regDate time.Time, departmentKey string) *domain.Announcement {
	externalID, ok := raw.String("itemId")
	if !ok || externalID == "" {
		return nil
	}

	title, _ := raw.String("title")

	return &domain.Announcement{
		ItemID:               domain.ItemID(departmentKey, externalID),
		DepartmentKey:        departmentKey,
		Title:                title,
		DataContents:         raw.OptString("dataContents"),
		ApplicationStartDate: raw.OptString("applicationStartDate"),
		ApplicationEndDate:   raw.OptString("applicationEndDate"),
		WriterName:           raw.OptString("writerName"),
		WriterPosition:       raw.OptString("writerPosition"),
		WriterPhone:          raw.OptString("writerPhone"),
		WriterEmail:          raw.OptString("writerEmail"),
		ViewURL:              raw.OptString("viewUrl"),
		FileNames:            attachments(raw, "fileName", "fileNames", "name", "fileName"),
		FileURLs:             attachments(raw, "fileUrl", "fileUrls", "url", "fileUrl"),
		RegDate:              regDate,
	}
}

// attachments resolves one side (names or urls) of the attachment pair. The
// singular field wins over the plural one; fileList descriptors are always
// appended.
func attachments(raw domain.RawRecord, singular, plural, descKey, descAltKey string) []string {
	out := []string{}

	if one, ok := raw.Value(singular).(string); ok && strings.TrimSpace(one) != "" {
		out = append(out, one)
	} else {
		switch many := raw.Value(plural).(type) {
		case []any:
			for _, v := range many {
				if s, ok := domain.ScalarString(v); ok {
					out = append(out, s)
				}
			}
		case string:
			if many != "" {
				out = append(out, many)
			}
		}
	}

	for _, desc := range descriptors(raw.Value("fileList")) {
		if s := descriptorValue(desc, descKey, descAltKey); s != "" {
			out = append(out, s)
		}
	}

	return out
}

// descriptors normalizes fileList. XML decoding yields a single map when the
// list holds one entry.
func descriptors(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case map[string]any:
		return []any{x}
	default:
		return nil
	}
}

func descriptorValue(desc any, key, altKey string) string {
	switch d := desc.(type) {
	case map[string]any:
		for _, k := range []string{key, altKey} {
			if s, ok := domain.ScalarString(d[k]); ok && s != "" {
				return s
			}
		}
		return ""
	case string:
		return d
	default:
		return ""
	}
}
