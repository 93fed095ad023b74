package grpc

import (
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// dateField parses a required YYYY-MM-DD field
func dateField(req *structpb.Struct, name string) (domain.Date, error) {
	raw := stringField(req, name)
	if raw == "" {
		return domain.Date{}, &domain.ValidationError{Field: name, Message: "missing date"}
	}
	return parseDate(name, raw)
}

// optionalDateField parses a YYYY-MM-DD field, returning fallback when it is absent
func optionalDateField(req *structpb.Struct, name string, fallback domain.Date) (domain.Date, error) {
	raw := stringField(req, name)
	if raw == "" {
		return fallback, nil
	}
	return parseDate(name, raw)
}

func parseDate(name, raw string) (domain.Date, error) {
	on, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, &domain.ValidationError{Field: name, Value: raw, Message: "date format must be YYYY-MM-DD"}
	}
	return on, nil
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw := stringField(req, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: name, Value: raw, Message: "invalid id format"}
	}
	return id, nil
}

// uuidListField parses a list of ids. An absent field is an empty list.
func uuidListField(req *structpb.Struct, name string) ([]uuid.UUID, error) {
	values := req.GetFields()[name].GetListValue().GetValues()
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, &domain.ValidationError{Field: name, Value: v.GetStringValue(), Message: "invalid id format"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// seriesToMap converts a series into {date: decimal string}
func seriesToMap(series *domain.Series) map[string]any {
	out := make(map[string]any, series.Len())
	for on, v := range series.All() {
		out[on.String()] = v.String()
	}
	return out
}

func seriesByID(values map[uuid.UUID]*domain.Series) map[string]any {
	out := make(map[string]any, len(values))
	for id, series := range values {
		out[id.String()] = seriesToMap(series)
	}
	return out
}

func rangesToList(ranges []domain.DateRange) []any {
	out := make([]any, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, []any{r.From.String(), r.To.String()})
	}
	return out
}
