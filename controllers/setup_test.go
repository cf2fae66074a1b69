package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/middleware"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/Josevinuez/trade-in-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testOrderTokenSecret = "order-token-secret-for-tests-0123456789"

type controllerTestEnv struct {
	db      *gorm.DB
	catalog testutil.Catalog
	events  *services.MockEventPublisher
	s3      *services.MockS3Service
	admin   models.StaffMember
	staff   models.StaffMember
}

// setupControllerTest wires the global DB and service singletons the handlers read
func setupControllerTest(t *testing.T) *controllerTestEnv {
	t.Helper()
	testutil.MustSetTestEnvironment(t)
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	env := &controllerTestEnv{
		db:      db,
		catalog: testutil.SeedCatalog(t, db),
		events:  services.NewMockEventPublisher(),
		s3:      services.NewMockS3Service(),
	}
	env.events.SetAsMockForTesting()
	services.SetTokenService(services.NewTokenService(testOrderTokenSecret, time.Hour))
	services.InitImageService(env.s3)
	env.admin = testutil.CreateStaffMember(t, db, "admin@example.com", "admin")
	env.staff = testutil.CreateStaffMember(t, db, "clerk@example.com", "staff")

	t.Cleanup(func() {
		services.SetEventPublisher(nil)
		services.SetTokenService(nil)
		services.SetImageService(nil)
	})
	return env
}

// router mounts the handlers the way main does, with member standing in for the staff auth pipeline
func (e *controllerTestEnv) router(member *models.StaffMember) *gin.Engine {
	r := gin.New()

	api := r.Group("/api/v1")
	api.GET("/categories", ListCategories)
	api.GET("/brands", ListBrands)
	api.GET("/conditions", ListConditions)
	api.GET("/devices", ListDevices)
	api.GET("/devices/:id", GetDevice)
	api.POST("/quotes", CreateQuote)
	api.POST("/trade-in", SubmitTradeIn)

	order := api.Group("/trade-in/:orderNumber", middleware.RequireOrderAccess(services.GetTokenService()))
	order.GET("", GetTradeIn)
	order.POST("/decision", DecideTradeIn)
	order.POST("/cancel", CancelTradeIn)

	staff := api.Group("/staff", func(c *gin.Context) {
		if member != nil {
			middleware.SetStaff(c, member)
		}
		c.Next()
	})
	staff.GET("/me", GetMe)
	staff.GET("/orders", ListOrders)
	staff.GET("/orders/:id", GetOrder)
	staff.GET("/orders/:id/history", GetOrderHistory)
	staff.PATCH("/orders/:id", UpdateOrder)
	staff.DELETE("/orders/:id", DeleteOrder)
	staff.GET("/stats", GetStats)
	staff.GET("/customers", ListCustomers)
	staff.GET("/customers/:id", GetCustomer)
	staff.GET("/categories", StaffListCategories)
	staff.POST("/categories", CreateCategory)
	staff.GET("/brands", StaffListBrands)
	staff.POST("/brands", CreateBrand)
	staff.GET("/devices", StaffListDevices)
	staff.GET("/devices/:id", StaffGetDevice)
	staff.POST("/devices", CreateDevice)
	staff.PUT("/devices/:id", UpdateDevice)
	staff.DELETE("/devices/:id", DeactivateDevice)
	staff.POST("/devices/:id/image", UploadDeviceImage)
	staff.POST("/devices/:id/storage-options", CreateStorageOption)
	staff.PUT("/storage-options/:id", UpdateStorageOption)
	staff.DELETE("/storage-options/:id", DeactivateStorageOption)

	members := staff.Group("/members", middleware.RequireRole(models.RoleAdmin))
	members.GET("", ListStaffMembers)
	members.POST("", CreateStaffMember)
	members.PATCH("/:id", UpdateStaffMember)

	return r
}

// submitOrder places a trade-in for the seeded 256GB iPhone and returns the order number and access token
func (e *controllerTestEnv) submitOrder(t *testing.T, email, condition string) (string, string) {
	t.Helper()

	w := performRequest(e.router(nil), http.MethodPost, "/api/v1/trade-in", map[string]interface{}{
		"email":           email,
		"first_name":      "Ada",
		"last_name":       "Lovelace",
		"device_model_id": e.catalog.Device.ID,
		"storage":         "256GB",
		"condition":       condition,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeResponse(t, w)["data"].(map[string]interface{})
	order := data["order"].(map[string]interface{})
	return order["order_number"].(string), data["access_token"].(string)
}

func performRequest(r http.Handler, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		jsonBody, _ := json.Marshal(b)
		reader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response should be valid JSON")
	return response
}

// errorCode extracts error.code from an error response
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	response := decodeResponse(t, w)
	errorObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "expected an error object in %s", w.Body.String())
	return errorObj["code"].(string)
}
