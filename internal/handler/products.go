package handler

import (
	"net/http"
	"strconv"

	"github.com/garageconnect/conversational-commerce/internal/catalog"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// ProductHandler exposes the back-office catalog search.
type ProductHandler struct {
	catalog *catalog.Service
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(cat *catalog.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: cat,
		logger:  log,
	}
}

// Search handles GET /api/v1/products/search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	width := intParam(q.Get("width"))
	height := intParam(q.Get("height"))
	diameter := intParam(q.Get("diameter"))
	if width == 0 || height == 0 || diameter == 0 {
		writeError(w, http.StatusBadRequest, "width, height and diameter are required")
		return
	}

	query := catalog.Query{
		Width:    width,
		Height:   height,
		Diameter: diameter,
		Brand:    q.Get("brand"),
		Category: model.ProductCategory(q.Get("category")),
		Page:     intParam(q.Get("page")),
	}
	if min, err := strconv.ParseFloat(q.Get("min_price"), 64); err == nil {
		query.MinPrice = min
	}
	if max, err := strconv.ParseFloat(q.Get("max_price"), 64); err == nil {
		query.MaxPrice = max
	}

	result, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to search products")
		writeError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func intParam(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
