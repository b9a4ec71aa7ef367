// Package query builds mailbox search filters for statement emails.
package query

import (
	"fmt"
	"time"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

const documentType = "pdf"

// New returns the search for statements from sender whose subject contains subject,
// received in the last years*365 days. Leap days are not accounted for.
func New(sender, subject string, years int, now time.Time) interfaces.SearchQuery {
	return interfaces.SearchQuery{
		From:     sender,
		Subject:  subject,
		FileType: documentType,
		After:    now.AddDate(0, 0, -365*years),
	}
}

// Expression renders q in Gmail search syntax.
func Expression(q interfaces.SearchQuery) string {
	return fmt.Sprintf(`from:%s subject:"%s" filename:%s after:%s`,
		q.From, q.Subject, q.FileType, q.After.Format("2006/01/02"))
}

func Build(sender, subject string, years int, now time.Time) string {
	return Expression(New(sender, subject, years, now))
}
