package domain

// FieldType is a primitive type in the structured-output schema.
type FieldType string

const (
	TypeString  FieldType = "STRING"
	TypeNumber  FieldType = "NUMBER"
	TypeBoolean FieldType = "BOOLEAN"
	TypeObject  FieldType = "OBJECT"
	TypeArray   FieldType = "ARRAY"
)

// Field declares one property of the model's JSON output. Object fields list
// their properties in Fields; array fields describe their element in Items.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	Enum        []string
	Fields      []Field
	Items       *Field
}

// Schema is the declared top-level output of a structured completion.
type Schema struct {
	Fields []Field
}

func str(name string, required bool, desc string) Field {
	return Field{Name: name, Type: TypeString, Required: required, Description: desc}
}

// AnalysisSchema declares the WeatherAnalysis shape the model must return.
// Required fields are exactly those the renderer reads unconditionally.
var AnalysisSchema = Schema{Fields: []Field{
	str("locationName", true, "Tên địa danh gần nhất"),
	str("summary", true, ""),
	str("immersiveDescription", true, "Mô tả ngôi thứ nhất như đang đứng tại chỗ"),
	str("temperature", true, "VD: 28°"),
	str("minTemp", false, "Nhiệt độ thấp nhất trong ngày. VD: 24"),
	str("maxTemp", false, "Nhiệt độ cao nhất trong ngày. VD: 32"),
	str("windSpeed", true, "Chỉ số tốc độ km/h. VD: 15"),
	str("windDirection", false, "Hướng gió viết tắt. VD: Đ, TN"),
	str("rainfall", true, "VD: 5mm"),
	str("terrainType", true, ""),
	str("recommendation", true, ""),
	{
		Name:     "forecast48h",
		Type:     TypeArray,
		Required: true,
		Items: &Field{Type: TypeObject, Fields: []Field{
			str("timeLabel", true, "VD: +12h"),
			str("temperature", true, ""),
			str("windSpeed", true, ""),
			str("rainfall", true, ""),
		}},
	},
	{
		Name:     "floodWarning",
		Type:     TypeObject,
		Required: true,
		Fields: []Field{
			{Name: "riskLevel", Type: TypeString, Required: true, Enum: riskLevelNames()},
			str("message", true, ""),
			str("affectedArea", true, ""),
		},
	},
	{
		Name:     "stormForecast",
		Type:     TypeObject,
		Required: true,
		Fields: []Field{
			{Name: "hasStorm", Type: TypeBoolean, Required: true},
			str("name", true, "Tên bão hoặc Áp thấp nhiệt đới"),
			str("intensity", true, "Cấp gió"),
			str("direction", true, "Hướng di chuyển"),
			str("eta", true, "Thời gian dự kiến ảnh hưởng"),
			{
				Name: "predictedPath",
				Type: TypeArray,
				Items: &Field{Type: TypeObject, Fields: []Field{
					{Name: "lat", Type: TypeNumber, Required: true},
					{Name: "lng", Type: TypeNumber, Required: true},
					str("time", true, ""),
					str("intensity", true, ""),
				}},
			},
		},
	},
}}

func riskLevelNames() []string {
	names := make([]string, len(RiskLevels))
	for i, l := range RiskLevels {
		names[i] = string(l)
	}
	return names
}

// RequiredNames returns the names of the required fields in declaration order.
func RequiredNames(fields []Field) []string {
	var names []string
	for _, f := range fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Document renders the schema in the completion service's OpenAPI subset.
func (s Schema) Document() map[string]any {
	return objectDocument(s.Fields, "")
}

func objectDocument(fields []Field, desc string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldDocument(f)
	}
	doc := map[string]any{
		"type":       string(TypeObject),
		"properties": props,
	}
	if req := RequiredNames(fields); len(req) > 0 {
		doc["required"] = req
	}
	if desc != "" {
		doc["description"] = desc
	}
	return doc
}

func fieldDocument(f Field) map[string]any {
	switch f.Type {
	case TypeObject:
		return objectDocument(f.Fields, f.Description)
	case TypeArray:
		doc := map[string]any{"type": string(TypeArray)}
		if f.Items != nil {
			doc["items"] = fieldDocument(*f.Items)
		}
		if f.Description != "" {
			doc["description"] = f.Description
		}
		return doc
	}
	doc := map[string]any{"type": string(f.Type)}
	if f.Description != "" {
		doc["description"] = f.Description
	}
	if len(f.Enum) > 0 {
		doc["enum"] = f.Enum
	}
	return doc
}
