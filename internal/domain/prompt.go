package domain

import (
	"fmt"
	"strings"
)

// StyleFragments maps each layer to the visual emphasis requested from the
// image model.
var StyleFragments = map[LayerType]string{
	LayerTerrain:     "sweeping landscape view emphasising terrain relief, mountains, rivers and vegetation in clear daylight",
	LayerWind:        "strong wind in motion, bending trees and grass, flying leaves, streaking clouds and rough water surfaces",
	LayerRain:        "heavy rain falling, wet reflective ground, puddles, low grey clouds and mist over the scene",
	LayerTemperature: "heat shimmer and haze in the air, intense sunlight or cold morning mist matching the temperature, warm or cool colour grading",
}

// layerFocus tells the analysis prompt which facet to dwell on.
var layerFocus = map[LayerType]string{
	LayerTerrain:     "địa hình, thổ nhưỡng và cảnh quan",
	LayerWind:        "gió: tốc độ, hướng và các đợt gió giật",
	LayerRain:        "mưa: lượng mưa, độ ẩm và nguy cơ ngập lụt",
	LayerTemperature: "nhiệt độ: nóng lạnh, biên độ nhiệt trong ngày",
}

// Fixed qualifiers appended to every image prompt.
const (
	photoQualifiers = "Photorealistic, cinematic lighting, wide-angle lens, high detail, natural colours."
	noTextClause    = "Do not include any text, captions, labels, watermarks, map overlays or UI elements in the image."
)

// AnalysisPrompt builds the completion instruction for a coordinate and layer.
func AnalysisPrompt(c Coordinates, layer LayerType) string {
	var b strings.Builder
	b.WriteString("Bạn là chuyên gia khí tượng AI của hệ thống cảnh báo sớm Việt Nam.\n")
	fmt.Fprintf(&b, "Vị trí: Vĩ độ %.4f, Kinh độ %.4f.\n", c.Latitude, c.Longitude)
	b.WriteString("Thời gian: hiện tại.\n")
	fmt.Fprintf(&b, "Lớp bản đồ đang xem: %s. Hãy nhấn mạnh vào %s.\n\n", layer, layerFocus[layer])
	b.WriteString("Nhiệm vụ: phân tích và tạo dữ liệu thời tiết, địa hình ước lượng chi tiết cho địa điểm này. Trả lời bằng tiếng Việt.\n\n")
	b.WriteString("Yêu cầu định dạng:\n")
	b.WriteString("1. windDirection: hướng gió viết tắt tiếng Việt (VD: Đ, T, N, B, ĐB, TN).\n")
	b.WriteString("2. temperature: chỉ số nhiệt độ kèm ký hiệu độ (VD: \"28°\").\n")
	b.WriteString("3. minTemp/maxTemp: nhiệt độ thấp nhất và cao nhất trong ngày, chỉ ghi số (VD: \"24\", \"32\").\n")
	b.WriteString("4. forecast48h: các mốc dự báo theo thứ tự thời gian trong 48 giờ tới.\n")
	b.WriteString("5. stormForecast: có bão không? Nếu có, liệt kê đường đi dự kiến theo thứ tự thời gian, toạ độ thập phân.\n")
	b.WriteString("6. immersiveDescription: mô tả ngôi thứ nhất như đang đứng tại chỗ.\n\n")
	b.WriteString("Trả về JSON.")
	return b.String()
}

// ImagePrompt builds the image-generation instruction for an analysed location.
func ImagePrompt(locationName, description string, layer LayerType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A realistic photograph taken at %s, Vietnam.\n", locationName)
	fmt.Fprintf(&b, "Scene: %s\n", description)
	fmt.Fprintf(&b, "Style: %s.\n", StyleFragments[layer])
	b.WriteString(photoQualifiers)
	b.WriteString("\n")
	b.WriteString(noTextClause)
	return b.String()
}
