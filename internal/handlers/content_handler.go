package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/motorhub/backend/internal/content"
	"github.com/labstack/echo/v4"
)

// ContentHandler proxies the REST content API
type ContentHandler struct {
	client *content.Client
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(client *content.Client) *ContentHandler {
	return &ContentHandler{client: client}
}

// RegisterContentRoutes registers content proxy routes
func (h *ContentHandler) RegisterContentRoutes(g *echo.Group) {
	g.GET("/content/reviews", h.GetReviews)
	g.GET("/content/reviews/:id", h.GetReview)
	g.GET("/content/articles", h.GetArticles)
	g.GET("/content/articles/:id", h.GetArticle)
	g.GET("/content/news", h.GetNews)
	g.GET("/content/news/:id", h.GetNewsItem)
	g.GET("/content/search", h.Search)
	g.GET("/content/search/advanced", h.AdvancedSearch)
}

func (h *ContentHandler) GetReviews(c echo.Context) error {
	reviews, err := h.client.Reviews(c.Request().Context())
	return respond(c, reviews, err)
}

func (h *ContentHandler) GetReview(c echo.Context) error {
	review, err := h.client.Review(c.Request().Context(), c.Param("id"))
	return respond(c, review, err)
}

func (h *ContentHandler) GetArticles(c echo.Context) error {
	articles, err := h.client.Articles(c.Request().Context())
	return respond(c, articles, err)
}

func (h *ContentHandler) GetArticle(c echo.Context) error {
	article, err := h.client.Article(c.Request().Context(), c.Param("id"))
	return respond(c, article, err)
}

func (h *ContentHandler) GetNews(c echo.Context) error {
	news, err := h.client.News(c.Request().Context())
	return respond(c, news, err)
}

func (h *ContentHandler) GetNewsItem(c echo.Context) error {
	item, err := h.client.NewsItem(c.Request().Context(), c.Param("id"))
	return respond(c, item, err)
}

// Search runs a free-text search
func (h *ContentHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query parameter q is required")
	}
	hits, err := h.client.Search(c.Request().Context(), q)
	return respond(c, hits, err)
}

// AdvancedSearch forwards every query parameter as a filter
func (h *ContentHandler) AdvancedSearch(c echo.Context) error {
	filters := make(map[string]string)
	for key, values := range c.QueryParams() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}
	hits, err := h.client.AdvancedSearch(c.Request().Context(), filters)
	return respond(c, hits, err)
}

func respond(c echo.Context, body interface{}, err error) error {
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Content not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "Content service unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, body)
}
