package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// CurrentDayFile is the mutable scratch file of the day in progress.
const CurrentDayFile = "current-day.json"

// Store reads and writes the day and week files under one data directory.
// Writers must hold the directory's Lock; readers need none.
type Store struct {
	base string
	lock *Lock
}

// NewStore returns a Store rooted at base.
func NewStore(base string) *Store {
	return &Store{base: base}
}

// Locked returns a store for the holder of lock. Only a locked store moves
// corrupt files aside; an unlocked one reports them and leaves them alone.
func (s *Store) Locked(lock *Lock) *Store {
	return &Store{base: s.base, lock: lock}
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.base
}

func (s *Store) currentDayPath() string {
	return filepath.Join(s.base, CurrentDayFile)
}

// weekFilePath returns the path for the given week label ("2026-W09").
func (s *Store) weekFilePath(label string) string {
	return filepath.Join(s.base, label+".json")
}

// LoadCurrentDay loads the day in progress. Returns an empty DayFile if none was started.
func (s *Store) LoadCurrentDay() (model.DayFile, error) {
	var df model.DayFile
	found, err := s.readJSON(s.currentDayPath(), &df)
	if err != nil || !found {
		return model.DayFile{Actions: []model.Action{}, Records: []model.BookingRecord{}}, err
	}
	return df, nil
}

// SaveCurrentDay atomically replaces the current-day file.
func (s *Store) SaveCurrentDay(df model.DayFile) error {
	data, err := EncodeDay(df)
	if err != nil {
		return apperr.Wrap(apperr.CodeStorageIO, err, "encoding current day")
	}
	return s.write(s.currentDayPath(), data)
}

// ResetCurrentDay removes the current-day file once its day is rotated.
func (s *Store) ResetCurrentDay() error {
	err := os.Remove(s.currentDayPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(apperr.CodeStorageIO, err, "resetting %s", CurrentDayFile)
	}
	return nil
}

// LoadWeek loads the week file for label. Returns an empty week if not found.
func (s *Store) LoadWeek(label string) (model.WeekFile, error) {
	var wf model.WeekFile
	found, err := s.readJSON(s.weekFilePath(label), &wf)
	if err != nil || !found {
		return model.WeekFile{Week: label, Days: []model.WeekDay{}}, err
	}
	return wf, nil
}

// WeekFor loads the week file of the ISO week containing t.
func (s *Store) WeekFor(t time.Time) (model.WeekFile, error) {
	return s.LoadWeek(timecalc.ISOWeekLabel(t))
}

// Rotate writes the finalized records of day into its week file. It fails
// with RotationConflict, touching nothing, when the week already holds the
// date and overwrite is false.
func (s *Store) Rotate(day time.Time, records []model.BookingRecord, overwrite bool) error {
	label := timecalc.ISOWeekLabel(day)
	date := timecalc.DateKey(day)

	wf, err := s.LoadWeek(label)
	if err != nil {
		return err
	}

	entry := model.WeekDay{
		Date:    date,
		Weekday: timecalc.ISOWeekday(day),
		Digest:  Digest(records),
		Records: append([]model.BookingRecord{}, records...),
	}

	replaced := false
	for i, d := range wf.Days {
		if d.Date != date {
			continue
		}
		if !overwrite {
			return apperr.New(apperr.CodeRotationConflict,
				"week %s already contains finalized bookings for %s", label, date)
		}
		wf.Days[i] = entry
		replaced = true
	}
	if !replaced {
		wf.Days = append(wf.Days, entry)
	}
	sort.SliceStable(wf.Days, func(i, j int) bool { return wf.Days[i].Date < wf.Days[j].Date })

	data, err := EncodeWeek(wf)
	if err != nil {
		return apperr.Wrap(apperr.CodeStorageIO, err, "encoding week %s", label)
	}
	return s.write(s.weekFilePath(label), data)
}

// ListWeeks returns the labels of all week files, sorted.
func (s *Store) ListWeeks() ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, err, "listing %s", s.base)
	}
	var labels []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || !strings.Contains(name, "-W") {
			continue
		}
		labels = append(labels, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(labels)
	return labels, nil
}

// VerifyWeek recomputes every day's digest and returns the dates whose
// records no longer match it.
func (s *Store) VerifyWeek(label string) ([]string, error) {
	wf, err := s.LoadWeek(label)
	if err != nil {
		return nil, err
	}
	var mismatched []string
	for _, d := range wf.Days {
		if Digest(d.Records) != d.Digest {
			mismatched = append(mismatched, d.Date)
		}
	}
	return mismatched, nil
}

// readJSON decodes path into v. A missing file reports found=false.
func (s *Store) readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.CodeStorageIO, err, "reading %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		if s.lock == nil {
			return false, apperr.Wrap(apperr.CodeCorruptFile, err, "corrupt JSON in %s", path)
		}
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return false, apperr.Wrap(apperr.CodeCorruptFile, err, "corrupt JSON in %s (backed up to %s)", path, backupPath)
	}
	return true, nil
}

func (s *Store) write(path string, data []byte) error {
	if err := writeFileAtomic(path, data); err != nil {
		return apperr.Wrap(apperr.CodeStorageIO, err, "writing %s", path)
	}
	return nil
}
