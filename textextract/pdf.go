package textextract

import (
	"github.com/ledongthuc/pdf"

	"healthai.com/rider/utils"
)

// readPDFPages returns the plain text of every page. A page whose text
// cannot be decoded comes back empty.
func readPDFPages(path string) (pages []string, err error) {
	// the pdf reader panics on some malformed streams
	defer utils.RecoverWithError(&err)

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, pageText(reader, i))
	}
	return pages, nil
}

func pageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
