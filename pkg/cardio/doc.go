// Package cardio predicts heart disease presence from a single patient's
// clinical measurements using a fitted scaler and classifier.
//
// Quick start:
//
//	c, err := cardio.New(cardio.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	label, _ := c.Predict(cardio.Record{Age: 63, Sex: 1, CP: 3, ...})
//	fmt.Println(label) // 0 or 1
//
// A Cardio instance is safe for concurrent use. Create once, reuse across
// requests.
package cardio
