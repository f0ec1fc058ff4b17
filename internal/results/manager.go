// Package results stores translation jobs on disk.
// Each job lives in its own directory holding a metadata.json record and,
// once finished, the translated PDF.
package results

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a translation job
type JobStatus string

const (
	// StatusPending indicates the job has been accepted but not started
	StatusPending JobStatus = "pending"
	// StatusRunning indicates the pipeline is working on the job
	StatusRunning JobStatus = "running"
	// StatusComplete indicates the translated PDF is available
	StatusComplete JobStatus = "complete"
	// StatusError indicates the job failed
	StatusError JobStatus = "error"
)

const (
	metadataFile = "metadata.json"
	outputFile   = "translated.pdf"
)

// ErrJobNotFound is returned when no record exists for a job id.
var ErrJobNotFound = errors.New("job not found")

// JobRecord is the persisted state of one translation job.
type JobRecord struct {
	ID              string    `json:"id"`
	FileName        string    `json:"file_name,omitempty"`
	SourceMD5       string    `json:"source_md5,omitempty"`
	SourceLang      string    `json:"source_lang"`
	TargetLang      string    `json:"target_lang"`
	TranslateText   bool      `json:"translate_text"`
	TranslateImages bool      `json:"translate_images"`
	Mode            string    `json:"mode,omitempty"`
	Status          JobStatus `json:"status"`
	Phase           string    `json:"phase,omitempty"`
	Progress        float64   `json:"progress"`
	Message         string    `json:"message,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	PageCount       int       `json:"page_count,omitempty"`
	OutputSize      int64     `json:"output_size,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Done reports whether the job has finished, successfully or not.
func (r *JobRecord) Done() bool {
	return r.Status == StatusComplete || r.Status == StatusError
}

// Manager manages job records stored under a base directory
type Manager struct {
	baseDir string
	mu      sync.Mutex
}

// NewManager creates a Manager rooted at baseDir.
// If baseDir is empty, uses ~/pdftrans-results.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(homeDir, "pdftrans-results")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the base directory for results
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// JobDir returns the directory for a job. Ids that are not UUIDs are rejected
// so a caller cannot escape the base directory.
func (m *Manager) JobDir(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: invalid id %q", ErrJobNotFound, id)
	}
	return filepath.Join(m.baseDir, parsed.String()), nil
}

// Create assigns a new id and timestamps to rec and persists it as pending.
func (m *Manager) Create(rec *JobRecord) error {
	now := time.Now()
	rec.ID = uuid.NewString()
	rec.Status = StatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(rec)
}

// Save persists rec, refreshing UpdatedAt.
func (m *Manager) Save(rec *JobRecord) error {
	rec.UpdatedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(rec)
}

func (m *Manager) save(rec *JobRecord) error {
	dir, err := m.JobDir(rec.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so readers never see a partial record.
	tmp := filepath.Join(dir, metadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metadataFile))
}

// Load reads the record of a job.
func (m *Manager) Load(id string) (*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

func (m *Manager) load(id string) (*JobRecord, error) {
	dir, err := m.JobDir(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, err
	}

	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &rec, nil
}

// Update loads a record, applies fn and saves it under the manager lock.
func (m *Manager) Update(id string, fn func(rec *JobRecord)) (*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(id)
	if err != nil {
		return nil, err
	}
	fn(rec)
	rec.UpdatedAt = time.Now()
	if err := m.save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateStatus sets the status of a job. errorMsg is cleared for non-error states.
func (m *Manager) UpdateStatus(id string, status JobStatus, errorMsg string) error {
	_, err := m.Update(id, func(rec *JobRecord) {
		rec.Status = status
		rec.ErrorMessage = errorMsg
		if status == StatusComplete {
			rec.Progress = 1
		}
	})
	return err
}

// UpdateProgress records pipeline progress. Progress never moves backwards
// and finished jobs are left untouched.
func (m *Manager) UpdateProgress(id string, phase string, progress float64, message string) error {
	_, err := m.Update(id, func(rec *JobRecord) {
		if rec.Done() {
			return
		}
		rec.Status = StatusRunning
		rec.Phase = phase
		if progress > rec.Progress {
			rec.Progress = progress
		}
		rec.Message = message
	})
	return err
}

// List returns all jobs, newest first.
func (m *Manager) List() ([]*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*JobRecord{}, nil
		}
		return nil, err
	}

	jobs := []*JobRecord{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := m.load(entry.Name())
		if err != nil {
			continue // Skip directories without a readable record
		}
		jobs = append(jobs, rec)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// Incomplete returns jobs that are still pending or running.
func (m *Manager) Incomplete() ([]*JobRecord, error) {
	jobs, err := m.List()
	if err != nil {
		return nil, err
	}

	var out []*JobRecord
	for _, job := range jobs {
		if !job.Done() {
			out = append(out, job)
		}
	}
	return out, nil
}

// Delete removes a job and its files.
func (m *Manager) Delete(id string) error {
	dir, err := m.JobDir(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return os.RemoveAll(dir)
}

// Exists checks if a record exists for id
func (m *Manager) Exists(id string) bool {
	dir, err := m.JobDir(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, metadataFile))
	return err == nil
}

// OutputPath returns where the translated PDF of a job is stored.
func (m *Manager) OutputPath(id string) (string, error) {
	dir, err := m.JobDir(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, outputFile), nil
}

// SaveOutput stores the translated PDF and marks the job complete.
func (m *Manager) SaveOutput(id string, data []byte) error {
	path, err := m.OutputPath(id)
	if err != nil {
		return err
	}
	if !m.Exists(id) {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	_, err = m.Update(id, func(rec *JobRecord) {
		rec.Status = StatusComplete
		rec.Progress = 1
		rec.OutputSize = int64(len(data))
		rec.ErrorCode = ""
		rec.ErrorMessage = ""
	})
	return err
}

// ReadOutput returns the translated PDF of a finished job.
func (m *Manager) ReadOutput(id string) ([]byte, error) {
	path, err := m.OutputPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no output for %s", ErrJobNotFound, id)
		}
		return nil, err
	}
	return data, nil
}

// CalculateMD5 returns the hex MD5 of data.
func CalculateMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// FindByMD5 returns the newest completed job for the given source hash, or nil.
func (m *Manager) FindByMD5(md5Hash, sourceLang, targetLang string) (*JobRecord, error) {
	jobs, err := m.List()
	if err != nil {
		return nil, err
	}

	for _, job := range jobs {
		if job.SourceMD5 == md5Hash && job.SourceLang == sourceLang &&
			job.TargetLang == targetLang && job.Status == StatusComplete {
			return job, nil
		}
	}
	return nil, nil // Not found, but not an error
}
