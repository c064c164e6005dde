package api

import (
	"encoding/xml"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"art-store/internal/apperr"
	"art-store/internal/service"
	"art-store/internal/storage"

	"github.com/gin-gonic/gin"
)

// listArtworks handles the gallery listing
func (h *Handler) listArtworks(c *gin.Context) {
	items, err := h.catalog.ListArtworks(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// createArtwork handles the multipart admin form
func (h *Handler) createArtwork(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.writeError(c, apperr.InvalidRequest("expected multipart form"))
		return
	}
	defer form.RemoveAll()

	in := &service.CreateArtworkInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Size:        c.PostForm("size"),
		Price:       c.PostForm("price"),
		Currency:    c.PostForm("currency"),
		Available:   c.PostForm("available"),
	}

	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range form.File["images"] {
		if fh.Size == 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			h.writeError(c, apperr.InvalidRequest("unreadable upload "+fh.Filename))
			return
		}
		opened = append(opened, f)
		in.Images = append(in.Images, storage.UploadInput{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        f,
		})
	}

	artwork, err := h.catalog.CreateArtwork(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, artwork)
}

type signUploadsRequest struct {
	Files []service.UploadFile `json:"files"`
}

// signUploads issues presigned PUT URLs for direct browser uploads
func (h *Handler) signUploads(c *gin.Context) {
	var req signUploadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.InvalidRequest("invalid request body"))
		return
	}

	signed, err := h.catalog.SignUploads(c.Request.Context(), req.Files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": signed})
}

func (h *Handler) robots(c *gin.Context) {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin\nDisallow: /api/\n\nHost: %s\nSitemap: %s/sitemap.xml\n", h.siteURL, h.siteURL)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

var sitemapPages = []struct {
	path       string
	changeFreq string
	priority   float64
}{
	{"/", "weekly", 1.0},
	{"/impressum", "yearly", 0.2},
	{"/datenschutz", "yearly", 0.2},
	{"/agb", "yearly", 0.2},
	{"/widerruf", "yearly", 0.2},
}

func (h *Handler) sitemap(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range sitemapPages {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + p.path,
			LastMod:    now,
			ChangeFreq: p.changeFreq,
			Priority:   p.priority,
		})
	}
	c.XML(http.StatusOK, set)
}
