package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"homerank/internal/model"
	"homerank/internal/utils"
)

// IngestReport summarises what ingestion kept and discarded.
type IngestReport struct {
	Rows           int      `json:"rows"`
	Kept           int      `json:"kept"`
	DroppedMissing int      `json:"dropped_missing"`
	Duplicates     int      `json:"duplicates"`
	IgnoredColumns []string `json:"ignored_columns,omitempty"`
	AssignedIDs    bool     `json:"assigned_ids"`
	DerivedUnit    int      `json:"derived_unit_price"`
}

type setter func(l *model.Listing, v any)

var setters = map[string]setter{
	model.FieldID:               func(l *model.Listing, v any) { l.ID = derefString(toString(v)) },
	model.FieldCity:             func(l *model.Listing, v any) { l.City = derefString(toString(v)) },
	model.FieldDistrict:         func(l *model.Listing, v any) { l.District = derefString(toString(v)) },
	model.FieldCommunity:        func(l *model.Listing, v any) { l.Community = toString(v) },
	model.FieldAddress:          func(l *model.Listing, v any) { l.Address = toString(v) },
	model.FieldTotalPrice:       func(l *model.Listing, v any) { l.TotalPrice = toFloat(v) },
	model.FieldUnitPrice:        func(l *model.Listing, v any) { l.UnitPrice = toFloat(v) },
	model.FieldArea:             func(l *model.Listing, v any) { l.Area = toFloat(v) },
	model.FieldUsableArea:       func(l *model.Listing, v any) { l.UsableArea = toFloat(v) },
	model.FieldBedrooms:         func(l *model.Listing, v any) { l.Bedrooms = toInt(v) },
	model.FieldLivingRooms:      func(l *model.Listing, v any) { l.LivingRooms = toInt(v) },
	model.FieldBathrooms:        func(l *model.Listing, v any) { l.Bathrooms = toInt(v) },
	model.FieldLayout:           func(l *model.Listing, v any) { l.Layout = toString(v) },
	model.FieldFloor:            func(l *model.Listing, v any) { l.Floor = toInt(v) },
	model.FieldTotalFloors:      func(l *model.Listing, v any) { l.TotalFloors = toInt(v) },
	model.FieldOrientation:      func(l *model.Listing, v any) { l.Orientation = toString(v) },
	model.FieldBuildingType:     func(l *model.Listing, v any) { l.BuildingType = toString(v) },
	model.FieldYearBuilt:        func(l *model.Listing, v any) { l.YearBuilt = toInt(v) },
	model.FieldElevator:         func(l *model.Listing, v any) { l.Elevator = toBool(v) },
	model.FieldParking:          func(l *model.Listing, v any) { l.Parking = toBool(v) },
	model.FieldSchoolDistrict:   func(l *model.Listing, v any) { l.SchoolDistrict = toBool(v) },
	model.FieldDistanceToSubway: func(l *model.Listing, v any) { l.DistanceToSubway = toFloat(v) },
	model.FieldNearestSubway:    func(l *model.Listing, v any) { l.NearestSubway = toString(v) },
	model.FieldDistanceToSchool: func(l *model.Listing, v any) { l.DistanceToSchool = toFloat(v) },
	model.FieldDistanceToPark:   func(l *model.Listing, v any) { l.DistanceToPark = toFloat(v) },
	model.FieldRenovation:       func(l *model.Listing, v any) { l.Renovation = toString(v) },
	model.FieldDescription:      func(l *model.Listing, v any) { l.Description = toString(v) },
	model.FieldCommunityIntro:   func(l *model.Listing, v any) { l.CommunityIntro = toString(v) },
	model.FieldSurrounding:      func(l *model.Listing, v any) { l.Surrounding = toString(v) },
	model.FieldTags:             func(l *model.Listing, v any) { l.Tags = toTags(v) },
	model.FieldPromotionWeight:  func(l *model.Listing, v any) { l.PromotionWeight = toFloat(v) },
	model.FieldQualityScore:     func(l *model.Listing, v any) { l.QualityScore = toFloat(v) },
}

// FromRecords cleans loosely typed records into a catalog. Column names go
// through the header alias table; unknown columns are ignored. Rows without
// id, city or district are dropped and duplicate ids keep the first row.
func FromRecords(records []map[string]any) (*Catalog, IngestReport) {
	report := IngestReport{Rows: len(records)}

	canonical := make([]map[string]any, len(records))
	columns := make(map[string]bool)
	ignored := make(map[string]bool)
	for i, rec := range records {
		canonical[i] = canonicalize(rec, columns, ignored)
	}
	for col := range ignored {
		report.IgnoredColumns = append(report.IgnoredColumns, col)
	}
	sort.Strings(report.IgnoredColumns)

	if !columns[model.FieldID] && len(records) > 0 {
		report.AssignedIDs = true
		columns[model.FieldID] = true
		for i := range canonical {
			canonical[i][model.FieldID] = fmt.Sprintf("UP%06d", i+1)
		}
	}

	listings := make([]model.Listing, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range canonical {
		var l model.Listing
		for field, v := range rec {
			setters[field](&l, v)
		}
		if l.ID == "" || l.City == "" || l.District == "" {
			report.DroppedMissing++
			continue
		}
		if seen[l.ID] {
			report.Duplicates++
			continue
		}
		seen[l.ID] = true

		if l.UnitPrice == nil && l.TotalPrice != nil && l.Area != nil && *l.Area > 0 {
			unit := *l.TotalPrice * 10000 / *l.Area
			l.UnitPrice = &unit
			report.DerivedUnit++
		}
		listings = append(listings, l)
	}
	if report.DerivedUnit > 0 {
		columns[model.FieldUnitPrice] = true
	}
	report.Kept = len(listings)

	fields := make([]string, 0, len(columns))
	for f := range columns {
		fields = append(fields, f)
	}
	return New(listings, fields), report
}

// canonicalize maps one record's headers onto field names. When several
// headers resolve to the same field, a header spelled exactly as the field
// wins over an alias, and otherwise the first header in sorted order with a
// value wins. Missing values never shadow present ones.
func canonicalize(rec map[string]any, columns, ignored map[string]bool) map[string]any {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(rec))
	exact := make(map[string]bool, len(rec))
	for _, k := range keys {
		field := utils.CanonicalColumn(k)
		if _, ok := setters[field]; !ok {
			ignored[field] = true
			continue
		}
		columns[field] = true

		v := rec[k]
		if v == nil {
			continue
		}
		isExact := strings.EqualFold(strings.TrimSpace(k), field)
		if _, taken := out[field]; taken && (exact[field] || !isExact) {
			continue
		}
		out[field] = v
		exact[field] = isExact
	}
	return out
}

// ReadJSON ingests a JSON array of objects.
func ReadJSON(r io.Reader) (*Catalog, IngestReport, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, IngestReport{}, fmt.Errorf("failed to decode listings: %w", err)
	}
	cat, report := FromRecords(records)
	return cat, report, nil
}

// ReadCSV ingests CSV with a header row. Empty cells are treated as missing.
func ReadCSV(r io.Reader) (*Catalog, IngestReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New(nil, nil), IngestReport{}, nil
	}
	if err != nil {
		return nil, IngestReport{}, fmt.Errorf("failed to read csv header: %w", err)
	}

	var records []map[string]any
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, IngestReport{}, fmt.Errorf("failed to read csv row %d: %w", len(records)+2, err)
		}
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				rec[col] = row[i]
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}
	cat, report := FromRecords(records)
	return cat, report, nil
}

// LoadFile ingests a .json or .csv file.
func LoadFile(path string) (*Catalog, IngestReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IngestReport{}, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, IngestReport{}, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

func toString(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = strings.TrimSpace(fmt.Sprint(x))
	}
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func toInt(v any) *int {
	f := toFloat(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

func toBool(v any) *bool {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1", "是", "有":
			b = true
		case "false", "no", "n", "0", "否", "无", "没有":
			b = false
		default:
			return nil
		}
	default:
		f := toFloat(v)
		if f == nil {
			return nil
		}
		b = *f != 0
	}
	return &b
}

func toTags(v any) model.JSONArray {
	var raw []string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		raw = strings.FieldsFunc(x, func(r rune) bool {
			return r == ',' || r == '/' || r == ';' || r == '，' || r == '；' || r == '、'
		})
	case []string:
		raw = x
	case []any:
		for _, item := range x {
			if s := toString(item); s != nil {
				raw = append(raw, *s)
			}
		}
	default:
		if s := toString(v); s != nil {
			raw = []string{*s}
		}
	}

	seen := make(map[string]bool, len(raw))
	tags := make(model.JSONArray, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
