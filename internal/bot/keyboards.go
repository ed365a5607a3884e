package bot

import "github.com/polis-labs/chronicler/internal/model"

// Callback payloads for the inline keyboards
const (
	cbStartSession = "start_session"

	cbLangEn   = "lang_en"
	cbLangRu   = "lang_ru"
	cbLangEs   = "lang_es"
	cbLangAuto = "lang_auto"

	cbModelTiny   = "model_tiny"
	cbModelBase   = "model_base"
	cbModelSmall  = "model_small"
	cbModelMedium = "model_medium"
	cbModelLarge  = "model_large"

	cbTempZero    = "temp_0.0"
	cbTempHalf    = "temp_0.5"
	cbTempOne     = "temp_1.0"
	cbTempDefault = "temp_default"

	cbOutputText = "output_text"
	cbOutputInfo = "output_info"

	cbStoreYes = "store_yes"
	cbStoreNo  = "store_no"
)

var (
	startKeyboard = model.Keyboard{
		{{Label: "✉️ Send file", Data: cbStartSession}},
	}

	languageKeyboard = model.Keyboard{
		{{Label: "English", Data: cbLangEn}, {Label: "Russian", Data: cbLangRu}},
		{{Label: "Español", Data: cbLangEs}, {Label: "Auto", Data: cbLangAuto}},
	}

	modelKeyboard = model.Keyboard{
		{{Label: "tiny(x0.25)", Data: cbModelTiny}, {Label: "base(x0.5)", Data: cbModelBase}},
		{{Label: "small(x1.0)", Data: cbModelSmall}, {Label: "medium(x2.0)", Data: cbModelMedium}, {Label: "large(x4.0)", Data: cbModelLarge}},
	}

	temperatureKeyboard = model.Keyboard{
		{{Label: "0.0 (accurate)", Data: cbTempZero}, {Label: "0.5 (balanced)", Data: cbTempHalf}},
		{{Label: "1.0 (creative)", Data: cbTempOne}},
		{{Label: "Use default", Data: cbTempDefault}},
	}

	outputKeyboard = model.Keyboard{
		{{Label: "🔤 Full Text", Data: cbOutputText}, {Label: "🔄 Info only", Data: cbOutputInfo}},
	}

	storeKeyboard = model.Keyboard{
		{{Label: "Yes, save it", Data: cbStoreYes}, {Label: "No, don't save", Data: cbStoreNo}},
	}
)
