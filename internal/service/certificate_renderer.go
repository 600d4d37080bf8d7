package service

import (
	"bytes"
	"fmt"
	"mentor_lms_backend/internal/util"
	"time"

	"github.com/fogleman/gg"
)

// CertificateData 证书上展示的内容
type CertificateData struct {
	Number      string
	StudentName string
	CourseTitle string
	Chapters    int
	IssuerName  string
	IssuedAt    time.Time
}

// CertificateRenderer 生成证书文件
type CertificateRenderer interface {
	Render(data CertificateData) ([]byte, error)
	ContentType() string
	Extension() string
}

// PNGCertificateRenderer 使用 gg 绘制 PNG 证书
type PNGCertificateRenderer struct {
	Width  int
	Height int
}

func NewPNGCertificateRenderer() *PNGCertificateRenderer {
	return &PNGCertificateRenderer{Width: 1200, Height: 850}
}

func (r *PNGCertificateRenderer) ContentType() string { return util.MimePNG }

func (r *PNGCertificateRenderer) Extension() string { return ".png" }

func (r *PNGCertificateRenderer) Render(data CertificateData) ([]byte, error) {
	w, h := float64(r.Width), float64(r.Height)
	dc := gg.NewContext(r.Width, r.Height)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// 边框
	dc.SetRGB(0.13, 0.24, 0.45)
	dc.SetLineWidth(14)
	dc.DrawRectangle(30, 30, w-60, h-60)
	dc.Stroke()
	dc.SetLineWidth(3)
	dc.DrawRectangle(55, 55, w-110, h-110)
	dc.Stroke()

	lines := []struct {
		text  string
		y     float64
		scale float64
	}{
		{"CERTIFICATE OF COMPLETION", 0.20, 4},
		{"This certifies that", 0.34, 2},
		{data.StudentName, 0.44, 3.5},
		{"has completed all chapters of", 0.54, 2},
		{data.CourseTitle, 0.63, 3},
		{fmt.Sprintf("%d chapters", data.Chapters), 0.71, 1.8},
		{fmt.Sprintf("Issued by %s on %s", data.IssuerName, data.IssuedAt.Format("2006-01-02")), 0.82, 1.6},
		{"No. " + data.Number, 0.88, 1.4},
	}

	dc.SetRGB(0.1, 0.1, 0.1)
	for _, l := range lines {
		x, y := w/2, h*l.y
		dc.Push()
		dc.ScaleAbout(l.scale, l.scale, x, y)
		dc.DrawStringAnchored(l.text, x, y, 0.5, 0.5)
		dc.Pop()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate png: %w", err)
	}
	return buf.Bytes(), nil
}
