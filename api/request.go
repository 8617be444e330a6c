package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthai.com/rider/pipeline"
	"healthai.com/rider/types"
)

const pipelineErrorPrefix = "Internal Server Error during pipeline: "

// processForm mirrors the multipart fields of POST /process. Numbers are
// bound as text so that a blank optional field stays absent.
type processForm struct {
	PatientName  string                `form:"patient_name" binding:"required"`
	Age          string                `form:"age" binding:"required"`
	Sex          string                `form:"sex" binding:"required"`
	BPSystolic   string                `form:"bp_systolic"`
	BPDiastolic  string                `form:"bp_diastolic"`
	Pulse        string                `form:"pulse_bpm"`
	Temperature  string                `form:"temperature_c"`
	SpO2         string                `form:"spo2_percent"`
	Symptoms     string                `form:"symptoms"`
	DocumentFile *multipart.FileHeader `form:"pdf_file"`
}

// optionalInt returns nil for a blank field.
func optionalInt(field, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer, got %q", field, raw)
	}
	return &v, nil
}

// optionalFloat returns nil for a blank field.
func optionalFloat(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number, got %q", field, raw)
	}
	return &v, nil
}

// symptomsPayload is the JSON object carried in the symptoms field.
type symptomsPayload struct {
	Title           string                  `json:"title"`
	Medication      []types.MedicationEntry `json:"medication"`
	MedicalHistory  string                  `json:"medical_history"`
	AdditionalNotes string                  `json:"additional_notes"`
	Date            string                  `json:"date"`
}

// parseSymptoms decodes the symptoms field. Empty input and JSON values
// other than an object carry no data.
func parseSymptoms(raw string) (symptomsPayload, error) {
	var payload symptomsPayload
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return payload, nil
	}
	if !json.Valid(trimmed) {
		return payload, errors.New("symptoms is not valid JSON")
	}
	if trimmed[0] != '{' {
		return payload, nil
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return payload, fmt.Errorf("symptoms: %w", err)
	}
	return payload, nil
}

func (f processForm) vitals() (types.Vitals, error) {
	var (
		v   types.Vitals
		err error
	)
	if v.Systolic, err = optionalInt("bp_systolic", f.BPSystolic); err != nil {
		return v, err
	}
	if v.Diastolic, err = optionalInt("bp_diastolic", f.BPDiastolic); err != nil {
		return v, err
	}
	if v.Pulse, err = optionalInt("pulse_bpm", f.Pulse); err != nil {
		return v, err
	}
	if v.SpO2, err = optionalInt("spo2_percent", f.SpO2); err != nil {
		return v, err
	}
	if v.Temperature, err = optionalFloat("temperature_c", f.Temperature); err != nil {
		return v, err
	}
	return v, nil
}

func (f processForm) formData(symptoms symptomsPayload) (types.FormData, error) {
	age, err := optionalInt("age", f.Age)
	if err != nil {
		return types.FormData{}, err
	}
	if age == nil {
		return types.FormData{}, errors.New("age is required")
	}
	vitals, err := f.vitals()
	if err != nil {
		return types.FormData{}, err
	}
	return types.FormData{
		PatientName:     f.PatientName,
		Age:             age,
		Sex:             f.Sex,
		Vitals:          vitals,
		Title:           symptoms.Title,
		Medications:     symptoms.Medication,
		MedicalHistory:  symptoms.MedicalHistory,
		AdditionalNotes: symptoms.AdditionalNotes,
		Date:            symptoms.Date,
	}, nil
}

type Request struct {
	Pipeline  pipeline.Pipeline
	UploadDir string
}

func (req *Request) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Health AI Backend running"})
}

func (req *Request) ProcessData(c *gin.Context) {
	tid := uuid.NewString()
	c.Set(tidKey, tid)
	reqLogger := makeRequestLogger(c.Request).With().Str("tid", tid).Logger()
	errLogger := reqLogger.With().Caller().Logger()

	var form processForm
	if err := c.ShouldBind(&form); err != nil {
		errLogger.Err(err).Int("status", http.StatusUnprocessableEntity).Msg("Invalid form")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	symptoms, err := parseSymptoms(form.Symptoms)
	if err != nil {
		errLogger.Err(err).Int("status", http.StatusUnprocessableEntity).Msg("Invalid symptoms field")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	formData, err := form.formData(symptoms)
	if err != nil {
		errLogger.Err(err).Int("status", http.StatusUnprocessableEntity).Msg("Invalid form value")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	request := pipeline.Request{
		Tid:  tid,
		Form: formData,
	}
	if form.DocumentFile != nil {
		path, err := req.saveUpload(c, form.DocumentFile)
		if err != nil {
			errLogger.Err(err).Str("file", form.DocumentFile.Filename).Msg("Could not store upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": pipelineErrorPrefix + err.Error()})
			return
		}
		defer os.Remove(path)
		request.Files = []string{path}
	}

	reqLogger.Info().Int("files", len(request.Files)).Msg("Starting pipeline for request from API")
	res := <-req.Pipeline(c.Request.Context(), request)
	if res.Err != nil {
		errLogger.Err(res.Err).Int("status", http.StatusInternalServerError).Msg("Pipeline failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": pipelineErrorPrefix + res.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, res.Response)
}

// saveUpload copies the upload to a fresh temp file that keeps the original extension.
func (req *Request) saveUpload(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp(req.UploadDir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := c.SaveUploadedFile(fh, path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}
