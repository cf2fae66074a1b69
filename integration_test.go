package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/Josevinuez/trade-in-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

// TradeInFlowSuite drives the full HTTP stack: real router, real staff token validation,
// in-memory SQLite and a recording event publisher.
type TradeInFlowSuite struct {
	suite.Suite
	router     *gin.Engine
	catalog    testutil.Catalog
	events     *services.MockEventPublisher
	staffToken string
	adminToken string
}

func TestTradeInFlowSuite(t *testing.T) {
	suite.Run(t, new(TradeInFlowSuite))
}

func (s *TradeInFlowSuite) SetupTest() {
	t := s.T()
	s.router = newTestServer(t, testConfig())

	db := config.GetDB()
	s.catalog = testutil.SeedCatalog(t, db)
	testutil.CreateStaffMember(t, db, "clerk@example.com", models.RoleStaff)
	testutil.CreateStaffMember(t, db, "boss@example.com", models.RoleAdmin)

	s.events = services.NewMockEventPublisher()
	s.events.SetAsMockForTesting()
	t.Cleanup(func() { services.SetEventPublisher(nil) })

	s.staffToken = testutil.MintStaffToken(t, testStaffSecret, testIssuer, testAudience, "user-clerk", "clerk@example.com")
	s.adminToken = testutil.MintStaffToken(t, testStaffSecret, testIssuer, testAudience, "user-boss", "boss@example.com")
}

func (s *TradeInFlowSuite) do(method, path string, body interface{}, bearer string) (int, map[string]interface{}) {
	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		buf = bytes.NewBuffer(raw)
	}

	var req *http.Request
	if buf != nil {
		req = httptest.NewRequest(method, path, buf)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var response map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w.Code, response
}

func (s *TradeInFlowSuite) data(response map[string]interface{}) map[string]interface{} {
	return response["data"].(map[string]interface{})
}

func (s *TradeInFlowSuite) TestRevisedPriceApprovedAndCompleted() {
	code, response := s.do(http.MethodPost, "/api/v1/quotes", map[string]interface{}{
		"device_model_id": s.catalog.Device.ID, "storage": "256GB", "condition": "good",
	}, "")
	s.Require().Equal(http.StatusOK, code)
	s.Equal("1200.00", s.data(response)["price"])

	code, response = s.do(http.MethodPost, "/api/v1/trade-in", map[string]interface{}{
		"email":           "ada@example.com",
		"first_name":      "Ada",
		"last_name":       "Lovelace",
		"device_model_id": s.catalog.Device.ID,
		"storage":         "256GB",
		"condition":       "good",
		"quoted_amount":   "1200.00",
	}, "")
	s.Require().Equal(http.StatusCreated, code, response)
	orderNumber := s.data(response)["order"].(map[string]interface{})["order_number"].(string)
	accessToken := s.data(response)["access_token"].(string)

	code, response = s.do(http.MethodGet, "/api/v1/staff/orders?status=PENDING", nil, s.staffToken)
	s.Require().Equal(http.StatusOK, code, response)
	orders := response["data"].([]interface{})
	s.Require().Len(orders, 1)
	orderPath := fmt.Sprintf("/api/v1/staff/orders/%.0f", orders[0].(map[string]interface{})["id"])

	code, _ = s.do(http.MethodPatch, orderPath, map[string]interface{}{"status": "PROCESSING", "note": "Received"}, s.staffToken)
	s.Require().Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodPatch, orderPath, map[string]interface{}{
		"status": "AWAITING_APPROVAL", "final_amount": "1100.00", "notes": "Battery at 71%",
	}, s.staffToken)
	s.Require().Equal(http.StatusOK, code)

	code, response = s.do(http.MethodPatch, orderPath, map[string]interface{}{"status": "PROCESSING"}, s.staffToken)
	s.Equal(http.StatusForbidden, code)
	s.Equal("FORBIDDEN_TRANSITION", response["error"].(map[string]interface{})["code"])

	code, response = s.do(http.MethodPost, "/api/v1/trade-in/"+orderNumber+"/decision", map[string]interface{}{"decision": "approve"}, accessToken)
	s.Require().Equal(http.StatusOK, code, response)
	s.Equal("PROCESSING", s.data(response)["status"])
	s.NotContains(s.data(response), "notes")

	code, response = s.do(http.MethodPatch, orderPath, map[string]interface{}{
		"status": "COMPLETED", "payment_method": "store_credit",
	}, s.staffToken)
	s.Require().Equal(http.StatusOK, code, response)
	order := s.data(response)
	s.Equal("COMPLETED", order["status"])
	s.Equal("1200.00", order["quoted_amount"])
	s.Equal("1100.00", order["final_amount"])
	s.NotNil(order["completed_at"])

	code, response = s.do(http.MethodGet, orderPath+"/history", nil, s.staffToken)
	s.Require().Equal(http.StatusOK, code)
	history := response["data"].([]interface{})
	s.Require().Len(history, 5)
	changedBy := make([]string, 0, len(history))
	for _, h := range history {
		changedBy = append(changedBy, h.(map[string]interface{})["changed_by"].(string))
	}
	s.Equal([]string{"system", "clerk@example.com", "clerk@example.com", "customer:ada@example.com", "clerk@example.com"}, changedBy)

	s.Equal([]string{
		services.EventOrderSubmitted,
		services.EventOrderStatusChanged,
		services.EventOrderStatusChanged,
		services.EventOrderStatusChanged,
		services.EventOrderStatusChanged,
	}, s.events.EventTypes())

	code, response = s.do(http.MethodGet, "/api/v1/staff/stats", nil, s.staffToken)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(float64(1), s.data(response)["orders_by_status"].(map[string]interface{})["COMPLETED"])
}

func (s *TradeInFlowSuite) TestCustomerCancelsAndAdminDeletes() {
	code, response := s.do(http.MethodPost, "/api/v1/trade-in", map[string]interface{}{
		"email": "grace@example.com", "first_name": "Grace", "last_name": "Hopper",
		"device_model_id": s.catalog.Device.ID, "storage": "128GB", "condition": "fair",
	}, "")
	s.Require().Equal(http.StatusCreated, code, response)
	orderNumber := s.data(response)["order"].(map[string]interface{})["order_number"].(string)
	accessToken := s.data(response)["access_token"].(string)

	code, response = s.do(http.MethodPost, "/api/v1/trade-in/"+orderNumber+"/cancel", map[string]interface{}{"note": "Sold it privately"}, accessToken)
	s.Require().Equal(http.StatusOK, code, response)
	s.Equal("CANCELLED", s.data(response)["status"])

	code, response = s.do(http.MethodGet, "/api/v1/staff/orders", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, code)
	orderPath := fmt.Sprintf("/api/v1/staff/orders/%.0f", response["data"].([]interface{})[0].(map[string]interface{})["id"])

	code, _ = s.do(http.MethodDelete, orderPath, nil, s.adminToken)
	s.Require().Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/trade-in/"+orderNumber, nil, accessToken)
	s.Equal(http.StatusNotFound, code)
}

func (s *TradeInFlowSuite) TestStaffAuthorization() {
	outsider := testutil.MintStaffToken(s.T(), testStaffSecret, testIssuer, testAudience, "user-x", "outsider@example.com")
	forged := testutil.MintStaffToken(s.T(), "some-other-secret-0123456789abcdef", testIssuer, testAudience, "user-clerk", "clerk@example.com")

	tests := []struct {
		name         string
		path         string
		token        string
		expectedCode int
		expectedErr  string
	}{
		{"no token", "/api/v1/staff/orders", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"forged token", "/api/v1/staff/orders", forged, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"order access token is not a staff credential", "/api/v1/staff/orders", s.customerToken(), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"not on the allow-list", "/api/v1/staff/orders", outsider, http.StatusForbidden, "NOT_STAFF"},
		{"staff role on admin route", "/api/v1/staff/members", s.staffToken, http.StatusForbidden, "INSUFFICIENT_ROLE"},
		{"admin on admin route", "/api/v1/staff/members", s.adminToken, http.StatusOK, ""},
		{"staff identity", "/api/v1/staff/me", s.staffToken, http.StatusOK, ""},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, response := s.do(http.MethodGet, tt.path, nil, tt.token)
			s.Equal(tt.expectedCode, code, response)
			if tt.expectedErr != "" {
				s.Equal(tt.expectedErr, response["error"].(map[string]interface{})["code"])
			}
		})
	}
}

// customerToken submits an order and returns its access token
func (s *TradeInFlowSuite) customerToken() string {
	code, response := s.do(http.MethodPost, "/api/v1/trade-in", map[string]interface{}{
		"email": "eve@example.com", "first_name": "Eve", "last_name": "Example",
		"device_model_id": s.catalog.Device.ID, "storage": "256GB", "condition": "poor",
	}, "")
	s.Require().Equal(http.StatusCreated, code, response)
	return s.data(response)["access_token"].(string)
}
