package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"propbot/internal/model"
	"propbot/internal/storage"
)

type listingResponse struct {
	ID            int64     `json:"id"`
	Source        string    `json:"source"`
	ExternalID    string    `json:"external_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	PropertyType  string    `json:"property_type"`
	Location      string    `json:"location"`
	Neighborhood  string    `json:"neighborhood"`
	Bedrooms      int       `json:"bedrooms"`
	Area          float64   `json:"area"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	PriceUSD      float64   `json:"price_usd"`
	Features      []string  `json:"features"`
	Photos        []string  `json:"photos"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	LastChangedAt time.Time `json:"last_changed_at"`

	PriceHistory []priceHistoryResponse `json:"price_history,omitempty"`
}

type priceHistoryResponse struct {
	OldPrice    float64   `json:"old_price"`
	NewPrice    float64   `json:"new_price"`
	OldCurrency string    `json:"old_currency"`
	NewCurrency string    `json:"new_currency"`
	ChangeType  string    `json:"change_type"`
	Percentage  float64   `json:"change_percentage"`
	CreatedAt   time.Time `json:"created_at"`
}

func toListingResponse(l *model.Listing) listingResponse {
	return listingResponse{
		ID:            l.ID,
		Source:        l.Source,
		ExternalID:    l.ExternalID,
		URL:           l.URL,
		Title:         l.Title,
		PropertyType:  l.PropertyType,
		Location:      l.Location,
		Neighborhood:  l.Neighborhood,
		Bedrooms:      l.Bedrooms,
		Area:          l.Area,
		Price:         l.Price,
		Currency:      l.Currency,
		PriceUSD:      l.PriceUSD,
		Features:      nonNil(l.Features),
		Photos:        nonNil(l.Photos),
		Description:   l.Description,
		Status:        string(l.Status),
		FirstSeenAt:   l.FirstSeenAt,
		LastSeenAt:    l.LastSeenAt,
		LastChangedAt: l.LastChangedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Health reports whether the database is reachable.
func (s *Server) Health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.log.Error("health check", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type listingsQuery struct {
	Site     string  `form:"site"`
	Status   string  `form:"status,default=active"`
	MinPrice float64 `form:"min_price" binding:"min=0"`
	MaxPrice float64 `form:"max_price" binding:"min=0"`
	Limit    int     `form:"limit,default=20" binding:"min=1,max=100"`
	Offset   int     `form:"offset" binding:"min=0"`
}

// ListListings returns catalog listings, most recently changed first.
// Price bounds apply to the USD price; status "all" disables the status filter.
func (s *Server) ListListings(c *gin.Context) {
	var q listingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}
	if q.MinPrice > 0 && q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		abortWithError(c, http.StatusBadRequest, "min_price exceeds max_price")
		return
	}

	query := storage.ListingQuery{
		Source:      strings.TrimSpace(q.Site),
		MinPriceUSD: q.MinPrice,
		MaxPriceUSD: q.MaxPrice,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	switch model.ListingStatus(q.Status) {
	case model.ListingActive, model.ListingInactive:
		query.Status = model.ListingStatus(q.Status)
	case "all":
	default:
		abortWithError(c, http.StatusBadRequest, "status must be active, inactive or all")
		return
	}

	listings, err := s.store.ListListings(c.Request.Context(), query)
	if err != nil {
		s.log.Error("list listings", "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]listingResponse, 0, len(listings))
	for i := range listings {
		data = append(data, toListingResponse(&listings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data), "limit": q.Limit, "offset": q.Offset})
}

// GetListing returns one listing with its price history.
func (s *Server) GetListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, "invalid listing id")
		return
	}

	ctx := c.Request.Context()
	l, err := s.store.GetListing(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "listing not found")
		return
	}
	if err != nil {
		s.log.Error("get listing", "listing_id", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
		return
	}

	history, err := s.store.ListPriceHistory(ctx, id)
	if err != nil {
		s.log.Error("list price history", "listing_id", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
		return
	}

	resp := toListingResponse(l)
	for _, h := range history {
		resp.PriceHistory = append(resp.PriceHistory, priceHistoryResponse{
			OldPrice:    h.OldPrice,
			NewPrice:    h.NewPrice,
			OldCurrency: h.OldCurrency,
			NewCurrency: h.NewCurrency,
			ChangeType:  string(h.ChangeType),
			Percentage:  h.Percentage,
			CreatedAt:   h.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Ingest reconciles a JSON array of raw records as a full pass for :source.
// Records without a source are attributed to :source.
func (s *Server) Ingest(c *gin.Context) {
	source := strings.TrimSpace(c.Param("source"))
	if source == "" {
		abortWithError(c, http.StatusBadRequest, "source is required")
		return
	}

	var batch []model.RawListing
	if err := c.ShouldBindJSON(&batch); err != nil {
		abortWithError(c, http.StatusBadRequest, "body must be a JSON array of listings")
		return
	}
	for i := range batch {
		if batch[i].Source == "" {
			batch[i].Source = source
		}
	}

	rep, err := s.ingester.Reconcile(c.Request.Context(), source, batch)
	if err != nil {
		s.log.Error("ingest", "source", source, "error", err)
		abortWithError(c, http.StatusInternalServerError, "ingestion failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rep})
}
