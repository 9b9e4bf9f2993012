package handlers

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/Dosada05/ticket-overlays/services"
)

type CurrencyHandler struct {
	currencyService services.CurrencyService
}

func NewCurrencyHandler(currencyService services.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{currencyService: currencyService}
}

func (h *CurrencyHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.currencyService.ListCurrencies(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	defaultCode, err := h.currencyService.DefaultCurrency(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"currencies": currencies, "default": defaultCode})
}

// GET /currencies/convert?amount=100&from=USD&to=EUR
// Недоступный курс не ошибка: ответ 200 с has_conversion = false.
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("invalid amount %q", q.Get("amount")))
		return
	}
	from := q.Get("from")
	if from == "" {
		from = models.BaseCurrency
	}
	to := q.Get("to")
	if to == "" {
		if to, err = h.currencyService.DefaultCurrency(r.Context()); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	result := h.currencyService.Convert(r.Context(), amount, from, to)
	successResponse(w, r, http.StatusOK, result)
}
