package cardio

import "github.com/crimson-sun/cardio/internal/model"

// Record is one patient's measurements. Categorical fields carry the raw
// dataset codes; codes outside the known levels score like the baseline
// category.
type Record struct {
	Age      float64 `json:"age"`
	Sex      int     `json:"sex"`      // 1 male, 0 female
	CP       int     `json:"cp"`       // chest pain type, 1-4
	Trestbps float64 `json:"trestbps"` // resting blood pressure (mmHg)
	Chol     float64 `json:"chol"`     // serum cholesterol (mg/dl)
	FBS      int     `json:"fbs"`      // fasting blood sugar > 120 mg/dl
	RestECG  int     `json:"restecg"`  // resting ECG result, 0-2
	Thalach  float64 `json:"thalach"`  // max heart rate achieved
	Exang    int     `json:"exang"`    // exercise-induced angina
	Oldpeak  float64 `json:"oldpeak"`  // ST depression relative to rest
	Slope    int     `json:"slope"`    // slope of peak exercise ST segment, 1-3
	CA       int     `json:"ca"`       // major vessels colored by fluoroscopy
	Thal     int     `json:"thal"`     // thalassemia, 3/6/7
}

func (r Record) internal() model.Record {
	return model.Record(r)
}
