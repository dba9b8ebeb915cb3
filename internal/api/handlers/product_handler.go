package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/services"
	"github.com/smartshopai/smartshop/internal/utils"
)

const restockNoticeFmt = "I noticed you're looking for %q. We don't have it in stock right now, but I can ask management to arrange it within 3 days! Shall I show you similar items?"

type ProductHandler struct {
	catalog catalog.Repository
	chat    services.ChatService
}

func NewProductHandler(repo catalog.Repository, chat services.ChatService) *ProductHandler {
	return &ProductHandler{catalog: repo, chat: chat}
}

type ProductListResponse struct {
	Products []models.Product `json:"products"`
}

// List returns the catalog, optionally filtered by category and a
// price ceiling.
func (h *ProductHandler) List(c *gin.Context) {
	const op = "ProductHandler.List"

	category := strings.ToLower(strings.TrimSpace(c.Query("category")))

	maxPrice := -1.0
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid max_price", err))
			return
		}
		maxPrice = v
	}

	products := []models.Product{}
	for _, p := range h.catalog.List() {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if maxPrice >= 0 && p.Price > maxPrice {
			continue
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, ProductListResponse{Products: products})
}

func (h *ProductHandler) Get(c *gin.Context) {
	const op = "ProductHandler.Get"

	p, ok := h.catalog.Get(c.Param("product_id"))
	if !ok {
		writeError(c, utils.E(utils.CodeNotFound, op, "product not found", nil))
		return
	}
	c.JSON(http.StatusOK, p)
}

// Suggest powers the header autosuggest strip.
func (h *ProductHandler) Suggest(c *gin.Context) {
	products := h.catalog.Match(c.Query("q"), catalog.SuggestLimit)
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, ProductListResponse{Products: products})
}

type SearchResponse struct {
	Products []models.Product `json:"products"`
	// Notice is set when the search missed and the assistant offered a
	// restock in the user's chat.
	Notice string `json:"notice,omitempty"`
}

// Search is the storefront search. A miss does not just return empty:
// the assistant follows up in the user's conversation with a restock
// offer.
func (h *ProductHandler) Search(c *gin.Context) {
	const op = "ProductHandler.Search"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "query required", nil))
		return
	}

	products := h.catalog.Match(query, catalog.SuggestLimit)

	resp := SearchResponse{Products: products}
	if resp.Products == nil {
		resp.Products = []models.Product{}
		notice := fmt.Sprintf(restockNoticeFmt, query)
		if _, err := h.chat.InjectAssistantNotice(c.Request.Context(), userID, notice); err == nil {
			resp.Notice = notice
		}
	}

	c.JSON(http.StatusOK, resp)
}
