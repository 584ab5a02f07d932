package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/availability"
	"barstock/internal/infrastructure/http/v1/middleware"
)

func newGateRouter(engine *availability.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())

	h := NewSaleHandler(NewBaseHandler(), nil, engine)
	r.POST("/sales/validate", h.ValidateItems)
	return r
}

func newSeededEngine(productID id.ID, physical int) *availability.Engine {
	engine := availability.NewEngine(availability.NewInFlightTracker(), availability.NewConfirmedKeys())
	engine.SetStock(context.Background(), []availability.ProductStock{
		{ProductID: productID, PhysicalStock: physical},
	}, time.Now())
	return engine
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSaleHandler_ValidateItems_WithinAvailability(t *testing.T) {
	productID := id.New()
	router := newGateRouter(newSeededEngine(productID, 5))

	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":3}]}`, productID)
	w := postJSON(t, router, "/sales/validate", body)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
}

func TestSaleHandler_ValidateItems_RejectsOverAvailability(t *testing.T) {
	productID := id.New()
	router := newGateRouter(newSeededEngine(productID, 5))

	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":9}]}`, productID)
	w := postJSON(t, router, "/sales/validate", body)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeInsufficientStock, resp.Code)
	assert.Equal(t, productID.String(), resp.Details["product_id"])
	assert.Equal(t, float64(5), resp.Details["available"])
}

func TestSaleHandler_ValidateItems_UnknownProduct(t *testing.T) {
	router := newGateRouter(newSeededEngine(id.New(), 5))

	body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":1}]}`, id.New())
	w := postJSON(t, router, "/sales/validate", body)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeProductUnknown, resp.Code)
}

func TestSaleHandler_ValidateItems_RequiresItems(t *testing.T) {
	router := newGateRouter(newSeededEngine(id.New(), 5))

	w := postJSON(t, router, "/sales/validate", `{"items":[]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
