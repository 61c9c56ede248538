package analytics

import "github.com/anuphat-bit/Eco-Hero/core"

// BridgeHook bridges an event source to multiple hooks.
type BridgeHook struct{ hooks []Hook }

func NewBridge(hooks ...Hook) *BridgeHook { return &BridgeHook{hooks: hooks} }

func (b *BridgeHook) OnEvent(e core.Event) {
	for _, h := range b.hooks {
		if h != nil {
			h.OnEvent(e)
		}
	}
}

// Add appends a hook after construction.
func (b *BridgeHook) Add(h Hook) { b.hooks = append(b.hooks, h) }
