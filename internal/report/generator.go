package report

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seanankenbruck/qsar-chat/internal/observability"
	"github.com/seanankenbruck/qsar-chat/internal/predictor"
)

const (
	previewRunes        = 500
	DownloadContentType = "text/plain; charset=utf-8"
	DownloadPathPrefix  = "/api/download-report/"
)

// IncompleteError reports which required field a report request lacks.
type IncompleteError struct {
	Field string
}

func (e *IncompleteError) Error() string {
	return "incomplete report data: missing " + e.Field
}

// Request is the input to Generate.
type Request struct {
	Substance string             `json:"substance"`
	Results   []predictor.Result `json:"results"`
	UserQuery string             `json:"user_query"`
}

// Generated describes a stored report and where to download it.
type Generated struct {
	Success        bool      `json:"success"`
	ReportID       string    `json:"report_id"`
	PDFURL         string    `json:"pdf_url"`
	ContentPreview string    `json:"content_preview"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Download is a rendered report ready to be served as an attachment.
type Download struct {
	Filename    string
	ContentType string
	Content     string
}

// Generator renders reports, stores them and signs their download links.
type Generator struct {
	store  Store
	signer *Signer
	now    func() time.Time
	newID  func() string
	logger *observability.Logger
}

func NewGenerator(store Store, signer *Signer) *Generator {
	return &Generator{
		store:  store,
		signer: signer,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: observability.NewLogger("report"),
	}
}

// Generate validates req, stores the report and returns its metadata.
// Results may be empty but must be present.
func (g *Generator) Generate(ctx context.Context, req Request) (Generated, error) {
	substance := strings.TrimSpace(req.Substance)
	if substance == "" {
		return Generated{}, &IncompleteError{Field: "substance"}
	}
	if req.Results == nil {
		return Generated{}, &IncompleteError{Field: "results"}
	}

	userQuery := strings.TrimSpace(req.UserQuery)
	if userQuery == "" {
		userQuery = DefaultUserQuery
	}

	data := Data{
		ID:          g.newID(),
		Substance:   substance,
		UserQuery:   userQuery,
		GeneratedAt: g.now(),
		Results:     req.Results,
	}

	var out Generated
	err := g.logger.WithOperation(ctx, "generate_report", func(ctx context.Context) error {
		if err := g.store.Save(ctx, data); err != nil {
			return fmt.Errorf("save report %s: %w", data.ID, err)
		}

		token, err := g.signer.Sign(data.ID)
		if err != nil {
			return err
		}

		out = Generated{
			Success:        true,
			ReportID:       data.ID,
			PDFURL:         downloadURL(data.ID, token),
			ContentPreview: Preview(Document(data), previewRunes),
			GeneratedAt:    data.GeneratedAt,
		}
		return nil
	})
	observability.RecordReportMetrics("generate", err)
	if err != nil {
		return Generated{}, err
	}
	return out, nil
}

// Download verifies token and renders the stored report id.
func (g *Generator) Download(ctx context.Context, id, token string) (Download, error) {
	d, err := g.download(ctx, id, token)
	observability.RecordReportMetrics("download", err)
	return d, err
}

func (g *Generator) download(ctx context.Context, id, token string) (Download, error) {
	if err := g.signer.Verify(token, id); err != nil {
		return Download{}, err
	}

	data, err := g.store.Get(ctx, id)
	if err != nil {
		return Download{}, err
	}

	return Download{
		Filename:    Filename(data.Substance),
		ContentType: DownloadContentType,
		Content:     Document(data),
	}, nil
}

func downloadURL(id, token string) string {
	u := DownloadPathPrefix + url.PathEscape(id)
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Filename is the attachment name for a substance's report.
func Filename(substance string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(substance), "_")
	if name == "" {
		name = "sustancia"
	}
	return "reporte_qsar_" + name + ".txt"
}
