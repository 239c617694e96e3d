package lifecycle

import (
	"strings"

	"bidtrack/models"
)

// InternalID builds the human-readable project code:
//
//	YYYYMM-BIDTYPE-CLIENTNAME-PRJ3-COUNTRY[-STATUSCODE]
//
// CLIENTNAME is uppercased with spaces removed, PRJ3 is the first three
// characters of the survey name. Every part is reduced to alphanumerics and
// empty parts are dropped. The status code is appended only once the project
// has gone through a status change.
func InternalID(p *models.Project, clientName string, withStatus bool) string {
	ym := ""
	if p.DateReceived != nil {
		ym = p.DateReceived.Format("200601")
	}

	client := strings.ToUpper(strings.ReplaceAll(clientName, " ", ""))

	name := p.Name
	if len(name) > 3 {
		name = name[:3]
	}

	parts := []string{
		sanitize(ym),
		sanitize(strings.ToUpper(p.BidType)),
		sanitize(client),
		sanitize(strings.ToUpper(name)),
		sanitize(p.Country),
	}

	if withStatus {
		code, ok := models.StatusCodes[p.Status]
		if !ok {
			code = strings.ToUpper(p.Status)
			if len(code) > 3 {
				code = code[:3]
			}
		}
		parts = append(parts, sanitize(code))
	}

	nonEmpty := parts[:0]
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, "-")
}

// sanitize keeps alphanumerics only so the code stays identifier-safe.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
