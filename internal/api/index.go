package api

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/bikeshare_insights/internal/models"
	"github.com/passbi/bikeshare_insights/internal/stats"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var chartHeadings = map[string]string{
	stats.ChartCustomerType: "Customer type distribution",
	stats.ChartGender:       "Gender distribution",
	stats.ChartAge:          "Birth year distribution",
	stats.ChartDateTime:     "Trips by month, day, weekday and hour",
	stats.ChartMostUsed:     "Most used stations",
	stats.ChartLeastUsed:    "Least used stations",
}

type indexChart struct {
	Path    string
	Heading string
}

type indexPage struct {
	Title    string
	Overview models.DatasetOverview
	Charts   []indexChart
}

// Index handles the / endpoint
func (s *Server) Index(c *fiber.Ctx) error {
	page := indexPage{
		Title:    "Bike-share trip insights",
		Overview: s.svc.Overview(),
	}
	for _, name := range stats.Charts {
		page.Charts = append(page.Charts, indexChart{Path: name, Heading: chartHeadings[name]})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
