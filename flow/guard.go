package flow

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/kriyahq/kriya/logger"
	"go.uber.org/zap"
)

// evalGuard evaluates a transition guard as a javascript expression with $
// bound to the merged event context. A guard that fails to evaluate blocks
// the transition.
func evalGuard(expression string, env map[string]any) bool {
	if env == nil {
		env = map[string]any{}
	}
	data, err := json.Marshal(env)
	if err != nil {
		logger.Error("error marshaling guard context", zap.Error(err))
		return false
	}
	vm := goja.New()
	if _, err := vm.RunString(fmt.Sprintf("var $ = %s;", data)); err != nil {
		logger.Error("error binding guard context", zap.Error(err))
		return false
	}
	val, err := vm.RunString(expression)
	if err != nil {
		logger.Error("error evaluating guard", zap.String("expression", expression), zap.Error(err))
		return false
	}
	return val.ToBoolean()
}
