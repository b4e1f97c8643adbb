// Package factory instantiates pluggable modules, such as metrics sinks, from
// configuration. A module is a type name plus raw settings; its factory
// decodes the settings with Decode and returns the implementation.
//
//	reg := factory.NewRegistry[metrics.CycleSink]()
//	_ = reg.Register("webhook", func(conf map[string]any) (metrics.CycleSink, error) {
//	    var c struct {
//	        URL     string        `json:"url"`
//	        Timeout time.Duration `json:"timeout"`
//	    }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newWebhookSink(c.URL, c.Timeout), nil
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "webhook", Conf: map[string]any{"url": "http://ops/hook"}})
package factory
