package gateway

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relicpool/core/events"
	"relicpool/core/types"
	"relicpool/factory"
	"relicpool/native/staking"
	"relicpool/storage"
)

type nopCustodian struct{}

func (nopCustodian) Transfer(from, to [20]byte, assetID uint64) error { return nil }

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func newTestGateway(t *testing.T) (http.Handler, [20]byte) {
	t.Helper()
	f := factory.New(addr(0x01), storage.NewMemDB())
	eventLog := NewEventLog(16)
	f.SetEmitter(eventLog)
	engine, err := f.CreatePool(factory.PoolSpec{
		RewardToken:  addr(0x70),
		Collection:   addr(0xC0),
		Oracle:       staking.NewStaticOracle(map[uint64]*big.Int{7: big.NewInt(100)}),
		Custodian:    nopCustodian{},
		EmissionRate: big.NewInt(10),
		Admin:        addr(0xAD),
	})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := engine.Deposit(addr(0xA1), 7); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return New(Config{Factory: f, EventLog: eventLog}), engine.PoolAddress()
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestGateway(t)
	rec := get(t, handler, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestListPools(t *testing.T) {
	handler, pool := newTestGateway(t)
	rec := get(t, handler, "/v1/pools")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var body struct {
		Pools []string `json:"pools"`
	}
	decode(t, rec, &body)
	if len(body.Pools) != 1 || body.Pools[0] != types.FormatAddress(pool) {
		t.Fatalf("pools: %v", body.Pools)
	}
}

func TestPoolSummary(t *testing.T) {
	handler, pool := newTestGateway(t)
	rec := get(t, handler, "/v1/pools/"+types.FormatAddress(pool))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body)
	}
	var body struct {
		EmissionRate  string `json:"emissionRate"`
		TotalWeight   string `json:"totalWeight"`
		ClaimsEnabled bool   `json:"claimsEnabled"`
	}
	decode(t, rec, &body)
	if body.EmissionRate != "10" || body.TotalWeight != "100" || body.ClaimsEnabled {
		t.Fatalf("summary: %+v", body)
	}
}

func TestDepositorQueries(t *testing.T) {
	handler, pool := newTestGateway(t)
	base := "/v1/pools/" + types.FormatAddress(pool) + "/depositors/" + types.FormatAddress(addr(0xA1))

	rec := get(t, handler, base+"/assets")
	var assets struct {
		Assets []string `json:"assets"`
	}
	decode(t, rec, &assets)
	if len(assets.Assets) != 1 || assets.Assets[0] != "7" {
		t.Fatalf("assets: %v", assets.Assets)
	}

	rec = get(t, handler, base+"/pending")
	var pending struct {
		Pending string `json:"pending"`
	}
	decode(t, rec, &pending)
	if pending.Pending != "0" {
		t.Fatalf("pending at deposit instant: %s", pending.Pending)
	}
}

func TestAssetScoreEndpoint(t *testing.T) {
	handler, pool := newTestGateway(t)
	rec := get(t, handler, "/v1/pools/"+types.FormatAddress(pool)+"/assets/7/score")
	var body struct {
		Score string `json:"score"`
	}
	decode(t, rec, &body)
	if body.Score != "100" {
		t.Fatalf("score: %s", body.Score)
	}
	if rec := get(t, handler, "/v1/pools/"+types.FormatAddress(pool)+"/assets/nope/score"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad asset id status: %d", rec.Code)
	}
}

func TestAssetScoreFailureIsCounted(t *testing.T) {
	handler, pool := newTestGateway(t)
	if rec := get(t, handler, "/v1/pools/"+types.FormatAddress(pool)+"/assets/999/score"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown asset status: %d", rec.Code)
	}
	rec := get(t, handler, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `staking_operation_failures_total{operation="gateway.assetScore"}`) {
		t.Fatal("assetScore failure missing from metrics exposition")
	}
}

func TestUnknownPoolReturns404(t *testing.T) {
	handler, _ := newTestGateway(t)
	rec := get(t, handler, "/v1/pools/"+types.FormatAddress(addr(0x99)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestRecentEvents(t *testing.T) {
	handler, _ := newTestGateway(t)
	rec := get(t, handler, "/v1/events")
	var body struct {
		Events []*types.Event `json:"events"`
	}
	decode(t, rec, &body)
	// Pool creation and one deposit.
	if len(body.Events) != 2 {
		t.Fatalf("event count: %d", len(body.Events))
	}
	if body.Events[0].Type != events.TypePoolCreated || body.Events[1].Type != events.TypeStaked {
		t.Fatalf("event order: %s, %s", body.Events[0].Type, body.Events[1].Type)
	}
}

func TestEventLogRingDiscardsOldest(t *testing.T) {
	log := NewEventLog(2)
	for i := byte(0); i < 3; i++ {
		log.Emit(events.Staked{Pool: addr(0x01), Depositor: addr(i + 1), AssetID: uint64(i), Weight: big.NewInt(1)})
	}
	listed := log.List(0)
	if len(listed) != 2 {
		t.Fatalf("retained: %d", len(listed))
	}
	if listed[0].Attributes["assetId"] != "1" || listed[1].Attributes["assetId"] != "2" {
		t.Fatalf("ring order: %v", listed)
	}
}
