package replay

import "MarketTimeMachine/internal/model"

// Observer receives everything a stepper emits. Calls arrive in emission
// order and never concurrently for one stepper.
type Observer interface {
	OnSample(s model.Sample)
	OnState(st model.State)
	OnEvent(e model.MarketEvent)
	OnLog(l model.LogLine)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	Sample func(model.Sample)
	State  func(model.State)
	Event  func(model.MarketEvent)
	Log    func(model.LogLine)
}

func (f ObserverFuncs) OnSample(s model.Sample) {
	if f.Sample != nil {
		f.Sample(s)
	}
}

func (f ObserverFuncs) OnState(st model.State) {
	if f.State != nil {
		f.State(st)
	}
}

func (f ObserverFuncs) OnEvent(e model.MarketEvent) {
	if f.Event != nil {
		f.Event(e)
	}
}

func (f ObserverFuncs) OnLog(l model.LogLine) {
	if f.Log != nil {
		f.Log(l)
	}
}

// Multi fans out to several observers in order.
type Multi []Observer

func (m Multi) OnSample(s model.Sample) {
	for _, o := range m {
		o.OnSample(s)
	}
}

func (m Multi) OnState(st model.State) {
	for _, o := range m {
		o.OnState(st)
	}
}

func (m Multi) OnEvent(e model.MarketEvent) {
	for _, o := range m {
		o.OnEvent(e)
	}
}

func (m Multi) OnLog(l model.LogLine) {
	for _, o := range m {
		o.OnLog(l)
	}
}
