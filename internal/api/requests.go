// internal/api/requests.go
package api

import (
	"strconv"

	"scoring-api/internal/scoring"
	"scoring-api/internal/validation"
)

const (
	StatusOK             = 200
	StatusBadRequest     = 400
	StatusForbidden      = 403
	StatusNotFound       = 404
	StatusInvalidRequest = 422
	StatusInternalError  = 500
)

// statusText holds the default error bodies for failure codes.
var statusText = map[int]string{
	StatusBadRequest:     "Bad Request",
	StatusForbidden:      "Forbidden",
	StatusNotFound:       "Not Found",
	StatusInvalidRequest: "Invalid Request",
	StatusInternalError:  "Internal Server Error",
}

// AdminLogin is the distinguished identity exempt from store-backed scoring.
const AdminLogin = "admin"

const adminScore = 42

// scorePairs lists the field pairs of which at least one must be fully
// populated for an online_score request to be valid.
var scorePairs = [][2]string{
	{"first_name", "last_name"},
	{"email", "phone"},
	{"birthday", "gender"},
}

// Request schemas, declared once at startup and read-only afterwards.
var (
	methodSchema = validation.NewSchema().
			Add("account", validation.NewChar(false, true)).
			Add("login", validation.NewChar(true, true)).
			Add("token", validation.NewChar(true, true)).
			Add("arguments", validation.NewArguments(true, true)).
			Add("method", validation.NewChar(true, true))

	onlineScoreSchema = validation.NewSchema().
				Add("first_name", validation.NewChar(false, true)).
				Add("last_name", validation.NewChar(false, true)).
				Add("email", validation.NewEmail(false, true)).
				Add("phone", validation.NewPhone(false, true)).
				Add("birthday", validation.NewBirthday(false, true)).
				Add("gender", validation.NewGender(false, true))

	clientsInterestsSchema = validation.NewSchema().
				Add("client_ids", validation.NewClientIDs(true, false)).
				Add("date", validation.NewDate(false, true))
)

// MethodRequest is the validated outer envelope.
type MethodRequest struct {
	Account   string
	Login     string
	Token     string
	Method    string
	Arguments map[string]interface{}
}

func (r *MethodRequest) IsAdmin() bool {
	return r.Login == AdminLogin
}

// parseMethodRequest validates the raw envelope body. On failure the error
// map is returned instead of a request.
func parseMethodRequest(body map[string]interface{}) (*MethodRequest, map[string]string) {
	res := methodSchema.Validate(body)
	if !res.Valid() {
		return nil, res.Errors
	}
	return &MethodRequest{
		Account:   res.String("account"),
		Login:     res.String("login"),
		Token:     res.String("token"),
		Method:    res.String("method"),
		Arguments: res.Map("arguments"),
	}, nil
}

// validateOnlineScore runs the per-field schema plus the cross-field pair
// rule. The pair rule is recorded under the "arguments" key so it reads as a
// whole-request failure.
func validateOnlineScore(args map[string]interface{}) *validation.Result {
	res := onlineScoreSchema.Validate(args)
	for _, pair := range scorePairs {
		if res.Has(pair[0]) && res.Has(pair[1]) {
			return res
		}
	}
	res.Errors["arguments"] = "request needs at least one pair with non-empty values: " +
		"(first_name, last_name), (email, phone), (birthday, gender)"
	return res
}

// scoreParams maps validated online_score values onto scoring parameters.
func scoreParams(res *validation.Result) scoring.Params {
	p := scoring.Params{
		FirstName: res.String("first_name"),
		LastName:  res.String("last_name"),
		Email:     res.String("email"),
		Birthday:  res.String("birthday"),
		Phone:     phoneText(res.Values["phone"]),
	}
	if g, ok := intValue(res.Values["gender"]); ok {
		p.Gender = &g
	}
	return p
}

// phoneText normalizes a validated phone value to its decimal text form.
func phoneText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	case int:
		if v == 0 {
			return ""
		}
		return strconv.Itoa(v)
	}
	return ""
}

func intValue(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// clientIDs converts a validated client_ids value to a flat id slice.
func clientIDs(value interface{}) []int64 {
	switch v := value.(type) {
	case []int:
		ids := make([]int64, 0, len(v))
		for _, id := range v {
			ids = append(ids, int64(id))
		}
		return ids
	case []interface{}:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			if id, ok := intValue(item); ok {
				ids = append(ids, id)
			}
		}
		return ids
	}
	return nil
}
