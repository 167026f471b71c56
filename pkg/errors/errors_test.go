package errors

import (
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "not fitted",
			err:  NewNotFittedError("StandardScaler", "Transform"),
			want: []string{"StandardScaler", "not fitted", "Transform"},
		},
		{
			name: "dimension mismatch on features",
			err:  NewDimensionError("Predict", 3, 2, 1),
			want: []string{"Predict", "features", "Expected 3", "got 2"},
		},
		{
			name: "dimension mismatch on rows",
			err:  NewDimensionError("Fit", 10, 8, 0),
			want: []string{"rows", "Expected 10", "got 8"},
		},
		{
			name: "validation",
			err:  NewValidationError("n_estimators", "must be positive", -1),
			want: []string{"n_estimators", "must be positive", "-1"},
		},
		{
			name: "value",
			err:  NewValueError("Transform", "unseen label \"Kiwi\""),
			want: []string{"Transform", "Kiwi"},
		},
		{
			name: "model error wrapping sentinel",
			err:  NewModelError("Fit", "empty data", ErrEmptyData),
			want: []string{"Fit", "empty data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q missing %q", msg, want)
				}
			}
		})
	}
}

func TestErrorTypesMatchWithAs(t *testing.T) {
	var nfe *NotFittedError
	if !As(NewNotFittedError("m", "Predict"), &nfe) {
		t.Error("As failed for NotFittedError")
	}

	var de *DimensionError
	if !As(NewDimensionError("op", 1, 2, 0), &de) {
		t.Error("As failed for DimensionError")
	}
	if de.Expected != 1 || de.Got != 2 {
		t.Errorf("DimensionError fields = %+v", de)
	}
}

func TestModelErrorUnwrapsSentinel(t *testing.T) {
	err := NewModelError("Fit", "empty data", ErrEmptyData)
	if !Is(err, ErrEmptyData) {
		t.Error("ModelError should match ErrEmptyData with Is")
	}
}

func TestRecover(t *testing.T) {
	fail := func() (err error) {
		defer Recover(&err, "test.op")
		panic("boom")
	}

	err := fail()
	if err == nil {
		t.Fatal("Recover did not convert the panic")
	}

	var pe *PanicError
	if !As(err, &pe) {
		t.Fatalf("error = %T, want PanicError", err)
	}
	if pe.Operation != "test.op" || pe.PanicValue != "boom" {
		t.Errorf("PanicError = %+v", pe)
	}
	if pe.StackTrace == "" {
		t.Error("PanicError has no stack trace")
	}
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("ok", func() error { return nil }); err != nil {
		t.Errorf("SafeExecute() = %v, want nil", err)
	}

	err := SafeExecute("panics", func() error { panic(42) })
	if err == nil {
		t.Fatal("SafeExecute should report the panic")
	}
	if !strings.Contains(err.Error(), "panics") {
		t.Errorf("error %q does not name the operation", err)
	}
}
