package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// ctx is checked every cancelCheckInterval rows
const cancelCheckInterval = 4096

// Loader reads purchase-order exports into Datasets. It is safe for
// concurrent use.
type Loader struct {
	logger   *slog.Logger
	columns  config.ColumnsConfig
	encoding string
}

// NewLoader creates a loader for the configured column layout and encoding
func NewLoader(logger *slog.Logger, cfg config.DataConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger.With(slog.String("component", "loader")),
		columns:  cfg.Columns,
		encoding: cfg.Encoding,
	}
}

// Load reads the file at path. The returned Dataset is never nil; on failure
// it is empty and err is an *errors.AppError.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.Is(err, fs.ErrNotExist) {
			appErr = errors.NewNotFoundError("data source", err)
		} else {
			appErr = errors.NewParsingError("open data source", err)
		}
		appErr.WithContext("path", path)
		l.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", path),
			slog.String("error", appErr.Error()))
		return domain.EmptyDataset(path), appErr
	}
	defer f.Close()

	return l.LoadReader(ctx, path, f)
}

// LoadReader reads a source from r. name identifies the source and selects
// the format: names ending in .xlsx are read as workbooks, everything else
// as CSV.
func (l *Loader) LoadReader(ctx context.Context, name string, r io.Reader) (*domain.Dataset, error) {
	start := time.Now()

	var (
		ds  *domain.Dataset
		err error
	)
	if IsWorkbook(name) {
		ds, err = l.loadWorkbook(ctx, name, r)
	} else {
		ds, err = l.loadCSV(ctx, name, r)
	}

	if err != nil {
		l.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", name),
			slog.String("error", err.Error()))
		return domain.EmptyDataset(name), err
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", name),
		slog.Int("rows_read", ds.Report.RowsRead),
		slog.Int("rows", ds.Report.RowsKept),
		slog.Int("dropped", ds.Report.TotalDropped()),
		slog.Any("dropped_by_reason", ds.Report.Dropped),
		slog.String("fingerprint", ds.Fingerprint),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

// IsWorkbook reports whether name looks like an Excel workbook
func IsWorkbook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

// rowSource yields data rows until io.EOF
type rowSource interface {
	Read() ([]string, error)
}

func (l *Loader) loadCSV(ctx context.Context, name string, r io.Reader) (*domain.Dataset, error) {
	decoder, err := decoderFor(l.encoding)
	if err != nil {
		return nil, err
	}

	hasher := newHasher()
	cr := csv.NewReader(transform.NewReader(io.TeeReader(r, hasher), decoder))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, errors.NewParsingError("source has no header row", nil).WithContext("source", name)
	}
	if err != nil {
		return nil, errors.NewParsingError("read header row", err).WithContext("source", name)
	}

	return l.build(ctx, name, header, cr, hasher)
}

func (l *Loader) loadWorkbook(ctx context.Context, name string, r io.Reader) (*domain.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewParsingError("read workbook", err).WithContext("source", name)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParsingError("open workbook", err).WithContext("source", name)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewParsingError("workbook has no sheets", nil).WithContext("source", name)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewParsingError("read sheet", err).WithContext("sheet", sheets[0])
	}
	if len(rows) == 0 {
		return nil, errors.NewParsingError("source has no header row", nil).WithContext("source", name)
	}

	hasher := newHasher()
	hasher.Write(data)

	return l.build(ctx, name, rows[0], &sliceSource{rows: rows[1:]}, hasher)
}

// build resolves the header and converts every data row
func (l *Loader) build(ctx context.Context, name string, header []string, src rowSource, hasher hash.Hash) (*domain.Dataset, error) {
	idx, schema, err := resolveColumns(header, l.columns)
	if err != nil {
		return nil, err
	}

	report := domain.LoadReport{Dropped: map[domain.DropReason]int{}}
	var records []domain.Record

	for {
		row, err := src.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				report.RowsRead++
				report.Dropped[domain.DropMalformedRow]++
				continue
			}
			return nil, errors.NewParsingError("read data row", err).WithContext("source", name)
		}

		report.RowsRead++
		if report.RowsRead%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, reason, ok := idx.record(row)
		if !ok {
			report.Dropped[reason]++
			continue
		}
		records = append(records, rec)
	}
	report.RowsKept = len(records)

	// the column layout is part of the identity: the same bytes read with
	// another mapping give different records
	fmt.Fprintf(hasher, "\x00%v", schema.Columns)

	return domain.NewDataset(domain.DatasetInfo{
		Source:      name,
		Fingerprint: hex.EncodeToString(hasher.Sum(nil)),
		Schema:      schema,
		Report:      report,
		LoadedAt:    time.Now().UTC(),
	}, records), nil
}

// columnIndex holds the position of each semantic field, -1 when absent
type columnIndex struct {
	date, amount, supplier      int
	category, subCategory       int
	poNumber, poStatus, shipTo  int
	supplierState, supplierCity int
	location                    int
	legacy                      bool
}

func resolveColumns(header []string, cols config.ColumnsConfig) (columnIndex, domain.SchemaMapping, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	schema := domain.SchemaMapping{Columns: map[domain.Field]string{}}
	lookup := func(field domain.Field, name string) int {
		if name == "" {
			return -1
		}
		if i, ok := positions[name]; ok {
			schema.Columns[field] = name
			return i
		}
		return -1
	}

	idx := columnIndex{
		date:          lookup(domain.FieldDate, cols.Date),
		amount:        lookup(domain.FieldAmount, cols.Amount),
		supplier:      lookup(domain.FieldSupplier, cols.Supplier),
		category:      lookup(domain.FieldCategory, cols.Category),
		subCategory:   lookup(domain.FieldSubCategory, cols.SubCategory),
		poNumber:      lookup(domain.FieldPONumber, cols.PONumber),
		poStatus:      lookup(domain.FieldPOStatus, cols.POStatus),
		shipTo:        lookup(domain.FieldShipToState, cols.ShipToState),
		supplierState: lookup(domain.FieldSupplierState, cols.SupplierState),
		supplierCity:  lookup(domain.FieldSupplierCity, cols.SupplierCity),
		location:      -1,
	}

	var missing []string
	if idx.date < 0 {
		missing = append(missing, cols.Date)
	}
	if idx.amount < 0 {
		missing = append(missing, cols.Amount)
	}
	if len(missing) > 0 {
		return idx, schema, errors.NewAppValidationError("missing required columns: "+strings.Join(missing, ", ")).
			WithContext("missing", missing)
	}

	if idx.supplierState < 0 && cols.SupplierLocation != "" {
		if i, ok := positions[cols.SupplierLocation]; ok {
			idx.location = i
			idx.legacy = true
			schema.LegacyLocation = true
			schema.Columns[domain.FieldSupplierState] = cols.SupplierLocation
			schema.Columns[domain.FieldSupplierCity] = cols.SupplierLocation
		}
	}

	return idx, schema, nil
}

// record converts one row. Amount is checked before date so a row failing
// both counts as invalid_amount.
func (c columnIndex) record(row []string) (domain.Record, domain.DropReason, bool) {
	amount, ok := parseAmount(cell(row, c.amount))
	if !ok {
		return domain.Record{}, domain.DropInvalidAmount, false
	}
	date, ok := parseDate(cell(row, c.date))
	if !ok {
		return domain.Record{}, domain.DropInvalidDate, false
	}

	rec := domain.Record{
		OrderDate:    date,
		Amount:       amount,
		SupplierName: strings.TrimSpace(cell(row, c.supplier)),
		ShipToState:  normalizeState(cell(row, c.shipTo)),
		Category:     normalizeText(cell(row, c.category)),
		SubCategory:  normalizeText(cell(row, c.subCategory)),
		PONumber:     normalizeText(cell(row, c.poNumber)),
		POStatus:     normalizeText(cell(row, c.poStatus)),
	}

	if c.legacy {
		if loc := cell(row, c.location); strings.TrimSpace(loc) != "" {
			city, state := splitLocation(loc)
			rec.SupplierCity = normalizeText(city)
			rec.SupplierState = normalizeState(state)
		}
	} else {
		rec.SupplierCity = normalizeText(cell(row, c.supplierCity))
		rec.SupplierState = normalizeState(cell(row, c.supplierState))
	}

	rec.Derive()
	return rec, "", true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

type sliceSource struct {
	rows [][]string
	pos  int
}

func (s *sliceSource) Read() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// decoderFor maps the configured source encoding to a decoder. The UTF-8
// decoders also strip a leading byte-order mark.
func decoderFor(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(encoding), "_", "-")) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "utf-16":
		return unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, errors.NewConfigError(fmt.Sprintf("unsupported source encoding %q", encoding), nil)
}

func newHasher() hash.Hash {
	// New256 only fails for keys longer than 64 bytes
	h, _ := blake2b.New256(nil)
	return h
}
