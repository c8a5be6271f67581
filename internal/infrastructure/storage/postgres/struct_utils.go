package postgres

import (
	"reflect"
	"sync"
)

// column maps a "db" tag to the field path inside a (possibly embedded) struct.
type column struct {
	name  string
	index []int
}

// typeColumns is the flattened column list of one struct type, in field order.
// Embedded structs (entity.Document, documents.ItemRef) contribute their
// columns at the position of the embedding field.
type typeColumns struct {
	columns []column
	byName  map[string]int
}

// columnCache maps reflect.Type to *typeColumns.
var columnCache sync.Map

func columnsOf(t reflect.Type) *typeColumns {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.(*typeColumns)
	}

	tc := &typeColumns{byName: make(map[string]int)}
	if t.Kind() == reflect.Struct {
		collectColumns(t, nil, tc)
	}

	actual, _ := columnCache.LoadOrStore(t, tc)
	return actual.(*typeColumns)
}

func collectColumns(t reflect.Type, prefix []int, tc *typeColumns) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append(make([]int, 0, len(prefix)+1), prefix...), i)

		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectColumns(ft, index, tc)
			}
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		// The outermost declaration wins, as with Go field promotion.
		if _, dup := tc.byName[tag]; dup {
			continue
		}
		tc.byName[tag] = len(tc.columns)
		tc.columns = append(tc.columns, column{name: tag, index: index})
	}
}

// ExtractDBColumns returns the column names of T's "db" tags, embedded
// structs flattened in place. Repositories call it once at construction time.
//
//	columns := ExtractDBColumns[invoice.Line]()
//	// ["line_id", "line_no", "item_id", ..., "line_total"]
func ExtractDBColumns[T any]() []string {
	tc := columnsOf(reflect.TypeOf((*T)(nil)))
	names := make([]string, len(tc.columns))
	for i, c := range tc.columns {
		names[i] = c.name
	}
	return names
}

// StructToMap converts a struct to a column → value map using "db" tags.
// Fields behind a nil embedded pointer map to nil.
func StructToMap(v any) map[string]any {
	rv, ok := structValue(v)
	if !ok {
		return nil
	}

	tc := columnsOf(rv.Type())
	res := make(map[string]any, len(tc.columns))
	for _, c := range tc.columns {
		res[c.name] = fieldValue(rv, c.index)
	}
	return res
}

// StructValues returns the values of the given columns in order, nil for
// columns the struct does not declare. It feeds COPY rows without building
// an intermediate map per row.
func StructValues(v any, columns []string) []any {
	values := make([]any, len(columns))
	rv, ok := structValue(v)
	if !ok {
		return values
	}

	tc := columnsOf(rv.Type())
	for i, name := range columns {
		if pos, ok := tc.byName[name]; ok {
			values[i] = fieldValue(rv, tc.columns[pos].index)
		}
	}
	return values
}

func structValue(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.Kind() == reflect.Struct
}

func fieldValue(rv reflect.Value, index []int) any {
	f, err := rv.FieldByIndexErr(index)
	if err != nil {
		return nil
	}
	return f.Interface()
}
