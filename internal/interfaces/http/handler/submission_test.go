package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	inventoryapp "github.com/assettrack/backend/internal/application/inventory"
	"github.com/assettrack/backend/internal/domain/anomaly"
	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/domain/shared"
	"github.com/assettrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSubmissionRepository implements inventory.FormSubmissionRepository for testing
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Save(ctx context.Context, submission *inventory.FormSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.FormSubmission, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.FormSubmission), args.Error(1)
}

func (m *MockSubmissionRepository) ListForMonth(ctx context.Context, tenantID, assetID uuid.UUID, month history.Month) ([]inventory.FormSubmission, error) {
	args := m.Called(ctx, tenantID, assetID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.FormSubmission), args.Error(1)
}

// MockTemplateRepository implements inventory.FormTemplateRepository for testing
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Save(ctx context.Context, template *inventory.FormTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.FormTemplate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.FormTemplate), args.Error(1)
}

func (m *MockTemplateRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.FormTemplate, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]inventory.FormTemplate), args.Get(1).(int64), args.Error(2)
}

func (m *MockTemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type submissionHandlerFixture struct {
	router      *gin.Engine
	assets      *MockAssetRepository
	records     *MockRecordRepository
	submissions *MockSubmissionRepository
	templates   *MockTemplateRepository
	tenantID    uuid.UUID
	asset       *inventory.Asset
	template    *inventory.FormTemplate
}

func newSubmissionHandlerFixture(t *testing.T) *submissionHandlerFixture {
	t.Helper()

	tenantID := uuid.New()
	assets := new(MockAssetRepository)
	records := new(MockRecordRepository)
	submissions := new(MockSubmissionRepository)
	templates := new(MockTemplateRepository)

	asset, err := inventory.NewAsset(tenantID, "Safety Gloves", "consumable")
	require.NoError(t, err)
	require.NoError(t, asset.ApplyQuantity(decimal.NewFromInt(80)))

	template, err := inventory.NewFormTemplate(tenantID, "Monthly count", []reconcile.FieldSpec{
		{ID: "counted", Label: "Counted quantity", Type: reconcile.FieldTypeNumber, Required: true, InventoryAction: reconcile.ActionSet},
	})
	require.NoError(t, err)

	scope := inventoryapp.NewNoOpTransactionScope(assets, records, submissions)
	service := inventoryapp.NewSubmissionService(templates, scope, reconcile.NewCalculator(nil), anomaly.NewDetector(), nil)
	h := NewSubmissionHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request.Header.Set("X-Tenant-ID", tenantID.String())
		c.Next()
	})
	router.POST("/inventory/submissions", h.Submit)

	return &submissionHandlerFixture{
		router:      router,
		assets:      assets,
		records:     records,
		submissions: submissions,
		templates:   templates,
		tenantID:    tenantID,
		asset:       asset,
		template:    template,
	}
}

func (f *submissionHandlerFixture) post(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/inventory/submissions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func TestSubmissionHandler_Submit(t *testing.T) {
	t.Run("processes a clean count", func(t *testing.T) {
		f := newSubmissionHandlerFixture(t)
		f.templates.On("FindByID", mock.Anything, f.tenantID, f.template.ID).Return(f.template, nil)
		f.assets.On("FindByID", mock.Anything, f.tenantID, f.asset.ID).Return(f.asset, nil)
		f.assets.On("Save", mock.Anything, mock.AnythingOfType("*inventory.Asset")).Return(nil)
		f.records.On("Append", mock.Anything, mock.AnythingOfType("*inventory.InventoryRecord")).Return(nil)
		f.submissions.On("Save", mock.Anything, mock.AnythingOfType("*inventory.FormSubmission")).Return(nil)

		w := f.post(t, SubmitInventoryRequest{
			AssetID: f.asset.ID.String(),
			FormID:  f.template.ID.String(),
			Values:  map[string]string{"counted": "75"},
		})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["success"])
		assert.Equal(t, string(inventory.SubmissionValidated), data["status"])
	})

	t.Run("reports validation failures without touching quantity", func(t *testing.T) {
		f := newSubmissionHandlerFixture(t)
		f.templates.On("FindByID", mock.Anything, f.tenantID, f.template.ID).Return(f.template, nil)
		f.assets.On("FindByID", mock.Anything, f.tenantID, f.asset.ID).Return(f.asset, nil)
		f.submissions.On("Save", mock.Anything, mock.AnythingOfType("*inventory.FormSubmission")).Return(nil)

		w := f.post(t, SubmitInventoryRequest{
			AssetID: f.asset.ID.String(),
			FormID:  f.template.ID.String(),
			Values:  map[string]string{},
		})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, false, data["success"])
		assert.Equal(t, string(inventory.SubmissionRejected), data["status"])
		f.assets.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.records.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("flags suspicious jumps", func(t *testing.T) {
		f := newSubmissionHandlerFixture(t)
		f.templates.On("FindByID", mock.Anything, f.tenantID, f.template.ID).Return(f.template, nil)
		f.assets.On("FindByID", mock.Anything, f.tenantID, f.asset.ID).Return(f.asset, nil)
		f.assets.On("Save", mock.Anything, mock.AnythingOfType("*inventory.Asset")).Return(nil)
		f.records.On("Append", mock.Anything, mock.AnythingOfType("*inventory.InventoryRecord")).Return(nil)
		f.submissions.On("Save", mock.Anything, mock.AnythingOfType("*inventory.FormSubmission")).Return(nil)

		w := f.post(t, SubmitInventoryRequest{
			AssetID: f.asset.ID.String(),
			FormID:  f.template.ID.String(),
			Values:  map[string]string{"counted": "800"},
		})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, string(inventory.SubmissionFlagged), data["status"])
		assert.NotEmpty(t, data["anomalies"])
	})

	t.Run("missing asset returns 404", func(t *testing.T) {
		f := newSubmissionHandlerFixture(t)
		f.templates.On("FindByID", mock.Anything, f.tenantID, f.template.ID).Return(f.template, nil)
		f.assets.On("FindByID", mock.Anything, f.tenantID, mock.Anything).Return(nil, shared.ErrNotFound)

		w := f.post(t, SubmitInventoryRequest{
			AssetID: uuid.NewString(),
			FormID:  f.template.ID.String(),
			Values:  map[string]string{"counted": "75"},
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects malformed asset id", func(t *testing.T) {
		f := newSubmissionHandlerFixture(t)

		w := f.post(t, map[string]any{
			"asset_id": "not-a-uuid",
			"form_id":  f.template.ID.String(),
			"values":   map[string]string{"counted": "75"},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing values", func(t *testing.T) {
		f := newSubmissionHandlerFixture(t)

		w := f.post(t, map[string]any{
			"asset_id": f.asset.ID.String(),
			"form_id":  f.template.ID.String(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCorrectionHandler_Apply(t *testing.T) {
	newFixture := func(t *testing.T) (*gin.Engine, *MockAssetRepository, *MockRecordRepository, uuid.UUID, *inventory.Asset) {
		t.Helper()
		tenantID := uuid.New()
		assets := new(MockAssetRepository)
		records := new(MockRecordRepository)
		submissions := new(MockSubmissionRepository)

		asset, err := inventory.NewAsset(tenantID, "Paint Cans", "paint")
		require.NoError(t, err)
		require.NoError(t, asset.ApplyQuantity(decimal.NewFromInt(800)))

		scope := inventoryapp.NewNoOpTransactionScope(assets, records, submissions)
		h := NewCorrectionHandler(inventoryapp.NewCorrectionService(scope, nil))

		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Request.Header.Set("X-Tenant-ID", tenantID.String())
			c.Next()
		})
		router.POST("/assets/:id/corrections", h.Apply)
		return router, assets, records, tenantID, asset
	}

	t.Run("applies reviewed correction", func(t *testing.T) {
		router, assets, records, tenantID, asset := newFixture(t)
		assets.On("FindByID", mock.Anything, tenantID, asset.ID).Return(asset, nil)
		assets.On("Save", mock.Anything, mock.AnythingOfType("*inventory.Asset")).Return(nil)
		records.On("Append", mock.Anything, mock.AnythingOfType("*inventory.InventoryRecord")).Return(nil)

		w := httptest.NewRecorder()
		body := []byte(`{"quantity": 80, "reason": "recount confirmed digit error"}`)
		req := httptest.NewRequest("POST", "/assets/"+asset.ID.String()+"/corrections", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "80", data["new_quantity"])
		assert.Equal(t, "800", data["previous_quantity"])
	})

	t.Run("rejects missing reason", func(t *testing.T) {
		router, assets, _, _, asset := newFixture(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/assets/"+asset.ID.String()+"/corrections", bytes.NewReader([]byte(`{"quantity": 80}`)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assets.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
	})
}
