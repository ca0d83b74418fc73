package lease

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, m *Manager) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	log, err := logger.NewLogger("zap", "error", "json", "stdout", "")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	r := gin.New()
	NewHTTPHandler(m, log).RegisterRoutes(&r.RouterGroup)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartLeaseHTTP(t *testing.T) {
	db := openTestDB(t)
	owner := seedOwner(t, db)
	car := seedCar(t, db, owner.ID, fleet.StatusIdle)
	cust := seedCustomer(t, db)
	m := NewManager(db, fixedClock{testNow}, nil)
	r := newTestRouter(t, m)

	w := doJSON(r, http.MethodPost, "/leases/start",
		`{"customer_id": `+itoa(cust.ID)+`, "car_id": `+itoa(car.ID)+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body=%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"customer_name":"Li Na"`) {
		t.Errorf("body missing customer name: %s", w.Body.String())
	}

	// 车已出租：409
	w = doJSON(r, http.MethodPost, "/leases/start",
		`{"customer_id": `+itoa(cust.ID)+`, "car_id": `+itoa(car.ID)+`}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (body=%s)", w.Code, w.Body.String())
	}

	// 不存在的客户：404
	w = doJSON(r, http.MethodPost, "/leases/start",
		`{"customer_id": 999, "car_id": `+itoa(car.ID)+`}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (body=%s)", w.Code, w.Body.String())
	}

	// 参数缺失：400
	w = doJSON(r, http.MethodPost, "/leases/start", `{"customer_id": 1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (body=%s)", w.Code, w.Body.String())
	}
}

func TestEndLeaseHTTP(t *testing.T) {
	db := openTestDB(t)
	owner := seedOwner(t, db)
	car := seedCar(t, db, owner.ID, fleet.StatusIdle)
	cust := seedCustomer(t, db)
	m := NewManager(db, fixedClock{testNow}, nil)
	r := newTestRouter(t, m)

	result, err := m.StartLease(context.Background(), cust.ID, car.ID)
	if err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	leaseID := result.Leases[0].ID

	w := doJSON(r, http.MethodPost, "/leases/"+itoa(leaseID)+"/end", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"ended"`) {
		t.Errorf("body missing ended status: %s", w.Body.String())
	}

	// 重复结束：409
	w = doJSON(r, http.MethodPost, "/leases/"+itoa(leaseID)+"/end", "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (body=%s)", w.Code, w.Body.String())
	}

	// 不存在的租约：404；非法 ID：400
	w = doJSON(r, http.MethodPost, "/leases/999/end", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (body=%s)", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodPost, "/leases/abc/end", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (body=%s)", w.Code, w.Body.String())
	}
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
