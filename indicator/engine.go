package indicator

import (
	"fmt"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

// Engine resolves and runs indicator calculations. Resolution order for a
// definition id: an external extension routine first, then the built-in of
// the same id. An id with neither produces an empty result, not an error;
// a failing extension falls back to the built-in rather than aborting, so a
// buggy extension never blocks rendering of other indicators.
type Engine struct {
	loader   ExtensionLoader
	builtins map[string]CalcFunc
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithExtensionLoader wires an extension loader into the engine.
func WithExtensionLoader(loader ExtensionLoader) EngineOption {
	return func(engine *Engine) {
		engine.loader = loader
	}
}

// NewEngine creates an engine with the built-in calculators registered.
func NewEngine(options ...EngineOption) *Engine {
	engine := &Engine{
		builtins: map[string]CalcFunc{
			"sma":    calcSMA,
			"ema":    calcEMA,
			"rsi":    calcRSI,
			"macd":   calcMACD,
			"bbands": calcBBands,
			"stoch":  calcStoch,
			"willr":  calcWillR,
		},
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// Compute runs the calculation for an instance against the full bar history.
// Failures are contained: the worst outcome for a single instance is an
// empty result.
func (e *Engine) Compute(instance model.Instance, bars []model.Bar) model.SeriesResult {
	if e.loader != nil {
		if result, ok := e.computeExtension(instance, bars); ok {
			return result
		}
	}

	builtin, ok := e.builtins[instance.DefinitionID]
	if !ok {
		log.Debugf("no calculation for definition %q, instance %s produces no series",
			instance.DefinitionID, instance.ID)
		return model.SeriesResult{}
	}

	result, err := builtin(bars, instance.Params)
	if err != nil {
		log.WithField("instance", instance.ID).
			Errorf("built-in %s failed: %v", instance.DefinitionID, err)
		return model.SeriesResult{}
	}
	return result
}

func (e *Engine) computeExtension(instance model.Instance, bars []model.Bar) (model.SeriesResult, bool) {
	fn, found, err := e.loader.Load(instance.DefinitionID)
	if err != nil {
		log.Warnf("extension for %s unavailable, falling back to built-in: %v",
			instance.DefinitionID, err)
		return model.SeriesResult{}, false
	}
	if !found {
		return model.SeriesResult{}, false
	}

	result, err := safeCall(fn, bars, instance.Params)
	if err != nil {
		log.Warnf("extension %s failed, falling back to built-in: %v",
			instance.DefinitionID, err)
		return model.SeriesResult{}, false
	}
	return result, true
}

// safeCall contains extension panics at the call site.
func safeCall(fn CalcFunc, bars []model.Bar, params map[string]interface{}) (result model.SeriesResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("calculation panic: %v", r)
		}
	}()
	return fn(bars, params)
}

func calcSMA(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	period := model.ParamInt(params, "period", 14)
	source := model.ParamString(params, "source", SourceClose)
	return model.SingleSeries(SMA(bars, period, source)), nil
}

func calcEMA(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	period := model.ParamInt(params, "period", 14)
	source := model.ParamString(params, "source", SourceClose)
	return model.SingleSeries(EMA(bars, period, source)), nil
}

func calcRSI(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	period := model.ParamInt(params, "period", 14)
	return model.SingleSeries(RSI(bars, period)), nil
}

func calcMACD(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	fast := model.ParamInt(params, "fastPeriod", 12)
	slow := model.ParamInt(params, "slowPeriod", 26)
	signal := model.ParamInt(params, "signalPeriod", 9)
	return model.MultiSeries(MACD(bars, fast, slow, signal)), nil
}

func calcBBands(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	period := model.ParamInt(params, "period", 20)
	deviation := model.ParamFloat(params, "deviation", 2.0)
	return model.MultiSeries(BBands(bars, period, deviation)), nil
}

func calcStoch(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	fastK := model.ParamInt(params, "fastK", 14)
	slowK := model.ParamInt(params, "slowK", 3)
	slowD := model.ParamInt(params, "slowD", 3)
	return model.MultiSeries(Stoch(bars, fastK, slowK, slowD)), nil
}

func calcWillR(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
	period := model.ParamInt(params, "period", 14)
	return model.SingleSeries(WillR(bars, period)), nil
}
