package moneyez

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL: baseURL,
		Secret:  "test-secret",
	})
}

func TestGetSpendingModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-External-Secret") != "test-secret" {
			t.Errorf("missing secret header, got %q", r.Header.Get("X-External-Secret"))
		}
		if r.URL.RawQuery != "command=get_speding_models" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[
			{"id":"m1","name":"50/30/20","description":"Cân bằng chi tiêu","ratio":"50-30-20"},
			{"id":"m2","name":"6 Jars","description":"Sáu chiếc lọ"}
		]}`)
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).GetSpendingModels(context.Background())
	if err != nil {
		t.Fatalf("GetSpendingModels: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "m1" || models[0].Name != "50/30/20" {
		t.Errorf("unexpected first model: %+v", models[0])
	}
	// Raw keeps fields the typed struct does not model.
	if !strings.Contains(string(models[0].Raw), `"ratio":"50-30-20"`) {
		t.Errorf("raw payload lost backend fields: %s", models[0].Raw)
	}
}

func TestGetSpendingModels_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetSpendingModels(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}

	var statusErr *domain.BackendStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected BackendStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", statusErr.StatusCode)
	}
}

func TestGetSubcategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The query pair stays literal up to the escaped id.
		if r.URL.RawQuery != "command=get_subcategories&query=user_id=user-7" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[
			{"code":"FOOD","name":"Ăn uống","categoryName":"Sinh hoạt","description":"Chi phí ăn uống hàng ngày"},
			{"code":"TRANSPORT","name":"Di chuyển","categoryName":"Sinh hoạt","description":"Xăng xe, gửi xe"}
		]}`)
	}))
	defer server.Close()

	subs, err := newTestClient(server.URL).GetSubcategories(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("GetSubcategories: %v", err)
	}

	if len(subs) != 2 {
		t.Fatalf("expected 2 subcategories, got %d", len(subs))
	}
	if subs[0].Code != "FOOD" || subs[0].CategoryName != "Sinh hoạt" {
		t.Errorf("unexpected subcategory: %+v", subs[0])
	}
}

func TestGetSubcategories_EscapesUserID(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"data":[]}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetSubcategories(context.Background(), "a b&c"); err != nil {
		t.Fatalf("GetSubcategories: %v", err)
	}
	if gotQuery != "command=get_subcategories&query=user_id=a+b%26c" {
		t.Errorf("unexpected raw query: %s", gotQuery)
	}
}

func TestCreateTransaction(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %s", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		io.WriteString(w, `{"status":200}`)
	}))
	defer server.Close()

	amount := 30000.0
	code := "FOOD"
	err := newTestClient(server.URL).CreateTransaction(context.Background(), domain.Transaction{
		UserID:          "user-7",
		Amount:          &amount,
		SubcategoryCode: &code,
		Description:     "ăn sáng 30k",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if gotBody["command"] != "create_transaction" {
		t.Errorf("command = %v", gotBody["command"])
	}
	data, ok := gotBody["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %v", gotBody)
	}
	if data["UserId"] != "user-7" || data["Amount"] != 30000.0 || data["SubcategoryCode"] != "FOOD" {
		t.Errorf("unexpected data: %v", data)
	}
	if data["Description"] != "ăn sáng 30k" {
		t.Errorf("description = %v", data["Description"])
	}
}

func TestCreateTransaction_NullFields(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	err := newTestClient(server.URL).CreateTransaction(context.Background(), domain.Transaction{
		UserID:      "user-7",
		Description: "mua gì đó",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// Indeterminate classifier fields must arrive as JSON null, not be omitted.
	if !strings.Contains(string(raw), `"Amount":null`) {
		t.Errorf("Amount not null: %s", raw)
	}
	if !strings.Contains(string(raw), `"SubcategoryCode":null`) {
		t.Errorf("SubcategoryCode not null: %s", raw)
	}
}

func TestCreateTransaction_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestClient(server.URL).CreateTransaction(context.Background(), domain.Transaction{UserID: "u"})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestGet_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := newTestClient(server.URL).GetSpendingModels(context.Background())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}
