package validate

// kzRegions maps the trailing two plate digits to the region name.
var kzRegions = map[string]string{
	"01": "Астана", "02": "Алматы", "03": "Акмолинская обл.", "04": "Актюбинская обл.",
	"05": "Алматинская обл.", "06": "Атырауская обл.", "07": "ЗКО", "08": "Жамбылская обл.",
	"09": "Карагандинская обл.", "10": "Костанайская обл.", "11": "Кызылординская обл.",
	"12": "Мангистауская обл.", "13": "Туркестанская обл.", "14": "Павлодарская обл.",
	"15": "СКО", "16": "ВКО", "17": "Шымкент", "18": "Абайская обл.", "19": "Жетысуская обл.",
	"20": "Улытауская обл.",
}

// RegionName resolves the region from the trailing plate digits.
func RegionName(plate string) string {
	if len(plate) < 2 {
		return "Регион не определен"
	}
	if name, ok := kzRegions[plate[len(plate)-2:]]; ok {
		return name
	}
	return "Регион не определен"
}
