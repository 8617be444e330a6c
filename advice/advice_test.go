package advice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthai.com/rider/types"
)

func vitals(s, d int) types.Vitals {
	return types.Vitals{Systolic: types.IntPtr(s), Diastolic: types.IntPtr(d)}
}

func TestDetectAlert(t *testing.T) {
	cases := []struct {
		in    types.Vitals
		grade string
	}{
		{vitals(190, 125), "Stage 3 (Severe Hypertension)"},
		{vitals(150, 110), "Stage 3 (Severe Hypertension)"},
		{vitals(150, 95), "Stage 2 Hypertension"},
		{vitals(120, 90), "Stage 2 Hypertension"},
		{vitals(132, 70), "Stage 1 Hypertension"},
		{vitals(110, 82), "Stage 1 Hypertension"},
		{vitals(125, 75), "Elevated Blood Pressure"},
	}
	for _, c := range cases {
		alert := DetectAlert(c.in)
		require.NotNil(t, alert, "reading %d/%d", *c.in.Systolic, *c.in.Diastolic)
		assert.Equal(t, c.grade, alert.HypertensionGrade)
		assert.Equal(t, "alert", alert.Status)
		assert.Equal(t, *c.in.Systolic, alert.BPSystolic)
		assert.NotEmpty(t, alert.Message)
	}

	assert.Nil(t, DetectAlert(vitals(118, 76)))
	assert.Nil(t, DetectAlert(vitals(0, 90)))
	assert.Nil(t, DetectAlert(types.Vitals{Systolic: types.IntPtr(200)}))
	assert.Nil(t, DetectAlert(types.Vitals{}))
}

func TestParseResponse(t *testing.T) {
	valid := `{"Overall Recommendations": {"exercise_plan": ["Walk 30 minutes"], "daily_routine": ["Sleep 8 hours"], "general_health_tips": ["Reduce salt"]}}`

	recs := ParseResponse(valid)
	assert.Equal(t, types.OverallRecommendations{
		ExercisePlan:      []string{"Walk 30 minutes"},
		DailyRoutine:      []string{"Sleep 8 hours"},
		GeneralHealthTips: []string{"Reduce salt"},
	}, recs)

	fenced := "```json\n" + valid + "\n```"
	assert.Equal(t, recs, ParseResponse(fenced))

	assert.Equal(t, types.OverallRecommendations{}, ParseResponse(`{"something": "else"}`))

	for _, bad := range []string{
		"Sure! Here are some tips: walk daily.",
		`["not", "an", "object"]`,
		`{"Overall Recommendations": {"exercise_plan": "walk"}}`,
	} {
		assert.Equal(t, types.OverallRecommendations{TextOutput: bad}, ParseResponse(bad), "reply %q", bad)
	}
}

func TestBuildPrompt(t *testing.T) {
	record := types.PatientRecord{PatientID: "PR_1234abcd", PatientName: "Asha", HypertensionGrade: types.GradeStage2}
	prompt, err := BuildPrompt(record)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"patient_id": "PR_1234abcd"`)
	assert.Contains(t, prompt, `"Overall Recommendations"`)
	assert.Contains(t, prompt, "DO NOT include any medicinal recommendations")
}

type stubGenerator struct {
	reply  string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, g.err
}

func TestAdvisorRecommend(t *testing.T) {
	gen := &stubGenerator{reply: "```json\n{\"Overall Recommendations\": {\"exercise_plan\": [\"Yoga\"]}}\n```"}
	advisor := NewAdvisor(gen)
	record := types.PatientRecord{PatientID: "PR_1", Vitals: vitals(190, 125)}

	recs, err := advisor.Recommend(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yoga"}, recs.ExercisePlan)
	require.NotNil(t, recs.Alert)
	assert.Equal(t, "Stage 3 (Severe Hypertension)", recs.Alert.HypertensionGrade)
	assert.Contains(t, gen.prompt, `"patient_id": "PR_1"`)

	gen.reply = "not json"
	recs, err = advisor.Recommend(context.Background(), types.PatientRecord{Vitals: vitals(110, 70)})
	require.NoError(t, err)
	assert.Equal(t, "not json", recs.TextOutput)
	assert.Nil(t, recs.Alert)

	gen.err = errors.New("quota exceeded")
	_, err = advisor.Recommend(context.Background(), record)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestGeminiClient(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "{\"a\":"}, {"text": "1}"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(Config{APIKey: "secret", BaseURL: server.URL + "/v1beta/", Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "hello", gotBody.Contents[0].Parts[0].Text)
}

func TestGeminiClientErrors(t *testing.T) {
	_, err := NewGeminiClient(Config{})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "API key not valid"), err.Error())

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer empty.Close()
	client, err = NewGeminiClient(Config{APIKey: "k", BaseURL: empty.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "hello")
	assert.Error(t, err)
}
