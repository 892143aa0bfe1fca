// Package stream provides the stream controller: a small state machine that
// starts and stops a transport, hydrates raw values into typed ones and fans
// events out to subscribers.
//
//	def := stream.Definition[any, Quote]{
//	    Mode:             transport.ModeNDJSON,
//	    Endpoint:         "https://api.example.com/quotes",
//	    ResponseHydrator: stream.JSON[Quote](),
//	}
//	ctrl, err := stream.New(def)
//	if err != nil {
//	    return err
//	}
//	sub := ctrl.Subscribe(stream.Handlers[Quote]{
//	    OnNext:  func(q Quote) { ... },
//	    OnError: func(err *errors.Error) { ... },
//	})
//	defer sub.Unsubscribe()
//	ctrl.Start(ctx)
//
// Status moves idle → connecting → streaming → completed | error, and to
// stopped on Stop. Subscribers see the status change before the OnError or
// OnComplete call of the same transition. Any error delivered by the
// transport ends the run.
package stream
