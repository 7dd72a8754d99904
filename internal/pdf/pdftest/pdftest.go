// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

const pageContent = "0 0 m 200 200 l S"

// Document returns a valid PDF with the given number of blank A4 pages, each
// carrying a single line so content streams are not empty.
func Document(pages int) []byte {
	if pages < 1 {
		pages = 1
	}

	var buf bytes.Buffer
	// Object numbers: 1 catalog, 2 page tree, then a page and its content
	// stream per page.
	total := 2 + 2*pages
	offsets := make([]int, total+1)

	buf.WriteString("%PDF-1.4\n")

	object := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	object(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))

	for i := range pages {
		page, content := 3+2*i, 4+2*i
		object(page, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> /Contents %d 0 R >>", content))
		object(content, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(pageContent), pageContent))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= total; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)

	return buf.Bytes()
}
