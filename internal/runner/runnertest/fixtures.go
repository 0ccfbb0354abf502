package runnertest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"
)

// WriteTIFF writes a small grayscale TIFF page to path.
func WriteTIFF(path string) error {
	img := image.NewGray(image.Rect(0, 0, 8, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * y)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MinimalPDF returns a well-formed PDF with the given number of blank A4 pages.
func MinimalPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, pages+2)

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(num int, body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", i+3)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))

	for i := 0; i < pages; i++ {
		writeObj(i+3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>")
	}

	xref := buf.Len()
	size := len(offsets) + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)

	return buf.Bytes()
}
