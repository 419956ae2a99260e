package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/modules/battle/service"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/response"
	"tsu-battle/internal/pkg/validator"
	"tsu-battle/internal/pkg/xerrors"
)

// setupSessionHandler 构建不依赖数据库的 Handler。
// 只覆盖会话存储与参数校验路径，涉及账号读取的用例见 service 层测试。
func setupSessionHandler(t *testing.T) (*SessionHandler, *echo.Echo) {
	t.Helper()

	rng := battle.NewSeededRand(1)
	sessionService := service.NewSessionService(
		service.NewSessionStore(),
		service.NewStatService(nil, nil),
		nil,
		nil,
		battle.NewWeightedRandomPolicy(rng),
		rng,
		log.GetLogger(),
	)
	h := &SessionHandler{
		sessionService: sessionService,
		respWriter:     response.DefaultResponseHandler(),
	}

	e := echo.New()
	e.Validator = validator.New()
	return h, e
}

func doJSON(e *echo.Echo, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestOpenSessionRequiresLogin(t *testing.T) {
	h, e := setupSessionHandler(t)

	c, rec := doJSON(e, http.MethodPost, "/battle/sessions", OpenSessionRequest{
		Mode:           "duel",
		ParticipantIDs: []string{"a", "b"},
	})

	require.NoError(t, h.OpenSession(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOpenSessionRejectsUnknownMode(t *testing.T) {
	h, e := setupSessionHandler(t)

	c, rec := doJSON(e, http.MethodPost, "/battle/sessions", OpenSessionRequest{
		Mode:           "chess",
		ParticipantIDs: []string{"a", "b"},
	})
	c.Set("user_id", "a")

	require.NoError(t, h.OpenSession(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decodeBody(t, rec)
	require.Equal(t, float64(xerrors.CodeInvalidBattleMode.ToInt()), payload["code"])
}

func TestSubmitActionValidatesActionName(t *testing.T) {
	h, e := setupSessionHandler(t)

	c, rec := doJSON(e, http.MethodPost, "/battle/sessions/s1/actions", SubmitActionRequest{
		Action: "fireball",
		Round:  1,
	})
	c.SetParamNames("session_id")
	c.SetParamValues("s1")
	c.Set("user_id", "a")

	require.NoError(t, h.SubmitAction(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitActionUnknownSessionReturns404(t *testing.T) {
	h, e := setupSessionHandler(t)

	c, rec := doJSON(e, http.MethodPost, "/battle/sessions/missing/actions", SubmitActionRequest{
		Action: "attack",
		Round:  1,
	})
	c.SetParamNames("session_id")
	c.SetParamValues("missing")
	c.Set("user_id", "a")

	require.NoError(t, h.SubmitAction(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	payload := decodeBody(t, rec)
	require.Equal(t, float64(xerrors.CodeBattleSessionNotFound.ToInt()), payload["code"])
}

func TestGetSessionUnknownReturns404(t *testing.T) {
	h, e := setupSessionHandler(t)

	c, rec := doJSON(e, http.MethodGet, "/battle/sessions/missing", nil)
	c.SetParamNames("session_id")
	c.SetParamValues("missing")

	require.NoError(t, h.GetSession(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPowerReturnsCurveValue(t *testing.T) {
	h := NewProgressionHandler(response.DefaultResponseHandler())
	e := echo.New()

	c, rec := doJSON(e, http.MethodGet, "/battle/progression/power/1", nil)
	c.SetParamNames("index")
	c.SetParamValues("1")

	require.NoError(t, h.GetPower(c))
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	data := payload["data"].(map[string]any)
	require.Equal(t, "10", data["power"])
	require.Equal(t, float64(1), data["tier"])
}

func TestGetPowerRejectsNonPositiveIndex(t *testing.T) {
	h := NewProgressionHandler(response.DefaultResponseHandler())
	e := echo.New()

	c, rec := doJSON(e, http.MethodGet, "/battle/progression/power/0", nil)
	c.SetParamNames("index")
	c.SetParamValues("0")

	require.NoError(t, h.GetPower(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decodeBody(t, rec)
	require.Equal(t, float64(xerrors.CodeIndexOutOfRange.ToInt()), payload["code"])
}

func TestGetRewardsAppliesBossMultipliers(t *testing.T) {
	h := NewProgressionHandler(response.DefaultResponseHandler())
	e := echo.New()

	c, rec := doJSON(e, http.MethodGet, "/battle/progression/rewards/1?boss=true", nil)
	c.SetParamNames("index")
	c.SetParamValues("1")

	require.NoError(t, h.GetRewards(c))
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	data := payload["data"].(map[string]any)
	require.Equal(t, "25", data["gold"])
	require.Equal(t, float64(3), data["training_points"])
	require.Equal(t, float64(2), data["shards"])
}
