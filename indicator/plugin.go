package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/quantview/quantview/model"
)

// CalcFunc runs one indicator calculation over the full bar history.
type CalcFunc func(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error)

// ExtensionLoader resolves externally supplied calculation routines by
// definition id. A missing extension is a normal fallback condition, not an
// error: Load reports found=false and the engine moves on to built-ins.
type ExtensionLoader interface {
	Load(id string) (fn CalcFunc, found bool, err error)
	// Reload invalidates the resolution cache so newly installed extensions
	// are picked up without restarting.
	Reload()
}

// PluginLoader loads calculation routines from Go plugin files named
// <id>.so in the extension directory. The exported symbol follows the
// Calculate<UPPERCASED_ID> convention and must have one of the signatures:
//
//	func([]model.Bar, map[string]interface{}) ([]model.RawPoint, error)
//	func([]model.Bar, map[string]interface{}) (map[string][]model.RawPoint, error)
type PluginLoader struct {
	mu     sync.Mutex
	dir    string
	cache  map[string]CalcFunc
	misses map[string]bool
}

// NewPluginLoader creates a loader over the given extension directory. An
// empty directory path disables extension lookup entirely.
func NewPluginLoader(dir string) *PluginLoader {
	return &PluginLoader{
		dir:    dir,
		cache:  make(map[string]CalcFunc),
		misses: make(map[string]bool),
	}
}

// SymbolName returns the exported symbol looked up for a definition id,
// eg. "macd" -> "CalculateMACD".
func SymbolName(id string) string {
	return "Calculate" + strings.ToUpper(id)
}

func (l *PluginLoader) Load(id string) (CalcFunc, bool, error) {
	if l == nil || l.dir == "" {
		return nil, false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if fn, ok := l.cache[id]; ok {
		return fn, true, nil
	}
	if l.misses[id] {
		return nil, false, nil
	}

	path := filepath.Join(l.dir, id+".so")
	if _, err := os.Stat(path); err != nil {
		l.misses[id] = true
		return nil, false, nil
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("open extension %s: %w", path, err)
	}

	symbol, err := p.Lookup(SymbolName(id))
	if err != nil {
		return nil, false, fmt.Errorf("extension %s: %w", path, err)
	}

	fn, err := wrapSymbol(symbol)
	if err != nil {
		return nil, false, fmt.Errorf("extension %s: %w", path, err)
	}

	l.cache[id] = fn
	return fn, true, nil
}

// Reload drops the resolution cache. The Go runtime keeps already-opened
// plugins mapped by path; only extensions added since the last lookup become
// visible.
func (l *PluginLoader) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]CalcFunc)
	l.misses = make(map[string]bool)
}

func wrapSymbol(symbol plugin.Symbol) (CalcFunc, error) {
	switch fn := symbol.(type) {
	case func([]model.Bar, map[string]interface{}) ([]model.RawPoint, error):
		return func(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
			points, err := fn(bars, params)
			if err != nil {
				return model.SeriesResult{}, err
			}
			return model.SingleSeries(points), nil
		}, nil
	case func([]model.Bar, map[string]interface{}) (map[string][]model.RawPoint, error):
		return func(bars []model.Bar, params map[string]interface{}) (model.SeriesResult, error) {
			series, err := fn(bars, params)
			if err != nil {
				return model.SeriesResult{}, err
			}
			return model.MultiSeries(series), nil
		}, nil
	}
	return nil, fmt.Errorf("unusable calculation signature %T", symbol)
}
