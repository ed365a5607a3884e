package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/model"
	"github.com/polis-labs/chronicler/internal/session"
	"github.com/polis-labs/chronicler/internal/transport"
)

// Router maps inbound transport updates onto state machine events. Any
// input it cannot map becomes an UnrelatedInput, which the machine
// answers with guidance instead of dropping silently.
type Router struct {
	machine *session.Machine
	ui      *UI
	log     *zap.Logger
}

// NewRouter creates the update router
func NewRouter(machine *session.Machine, ui *UI, log *zap.Logger) *Router {
	return &Router{
		machine: machine,
		ui:      ui,
		log:     log,
	}
}

// HandleInbound processes one update. Errors never escape to the
// polling loop; they are logged here.
func (r *Router) HandleInbound(ctx context.Context, in transport.Inbound) {
	var err error
	switch {
	case in.Command == "start":
		err = r.ui.Welcome(ctx, in.Owner)
	case in.Callback != "":
		err = r.machine.Apply(ctx, in.Owner, callbackEvent(in.Callback))
	case in.File != nil:
		err = r.machine.Apply(ctx, in.Owner, model.AudioUploaded{
			FileID:   in.File.ID,
			MIMEType: in.File.MIMEType,
			Document: in.File.Document,
		})
	default:
		err = r.machine.Apply(ctx, in.Owner, model.UnrelatedInput{})
	}

	if err != nil {
		r.log.Error("update handling failed",
			zap.Int64("owner", in.Owner),
			zap.Error(err))
	}
}

// callbackEvent decodes an inline button payload into an event
func callbackEvent(data string) model.Event {
	switch data {
	case cbStartSession:
		return model.StartSession{}

	case cbLangEn:
		return model.LanguageChosen{Language: "en"}
	case cbLangRu:
		return model.LanguageChosen{Language: "ru"}
	case cbLangEs:
		return model.LanguageChosen{Language: "es"}
	case cbLangAuto:
		return model.LanguageChosen{Language: "auto"}

	case cbModelTiny:
		return model.ModelChosen{ModelSize: "tiny"}
	case cbModelBase:
		return model.ModelChosen{ModelSize: "base"}
	case cbModelSmall:
		return model.ModelChosen{ModelSize: "small"}
	case cbModelMedium:
		return model.ModelChosen{ModelSize: "medium"}
	case cbModelLarge:
		return model.ModelChosen{ModelSize: "large"}

	case cbTempZero:
		return model.TemperatureChosen{Temperature: float64Ptr(0.0)}
	case cbTempHalf:
		return model.TemperatureChosen{Temperature: float64Ptr(0.5)}
	case cbTempOne:
		return model.TemperatureChosen{Temperature: float64Ptr(1.0)}
	case cbTempDefault:
		return model.TemperatureChosen{Temperature: nil}

	case cbOutputText:
		return model.OutputTypeChosen{OutputType: model.OutputFullText}
	case cbOutputInfo:
		return model.OutputTypeChosen{OutputType: model.OutputInfoOnly}

	case cbStoreYes:
		return model.StoreChosen{Save: true}
	case cbStoreNo:
		return model.StoreChosen{Save: false}

	default:
		return model.UnrelatedInput{}
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
