package suite

import (
	"github.com/abdul-hamid-achik/smokecheck/packages/assertions"
)

// Builtin returns the reqres.in and catfact.ninja smoke catalog. Every call
// returns fresh values.
func Builtin() []*Case {
	return []*Case{
		{
			Name:   "status_code_is_ok",
			Target: TargetReqres,
			Method: "GET",
			Path:   "/api/users/",
			Tags:   []string{"reqres", "users"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
			},
		},
		{
			Name:   "get_user",
			Target: TargetReqres,
			Method: "GET",
			Path:   "/api/users/2",
			Tags:   []string{"reqres", "users"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
				assertions.MatchesSchema("get_user"),
			},
		},
		{
			Name:   "post_user",
			Target: TargetReqres,
			Method: "POST",
			Path:   "/api/users/",
			Body:   map[string]any{"name": "Alex", "job": "QA"},
			Tags:   []string{"reqres", "users"},
			Expect: []assertions.Assertion{
				assertions.Status(201),
				assertions.MatchesSchema("post_user"),
			},
		},
		{
			Name:   "put_user",
			Target: TargetReqres,
			Method: "PUT",
			Path:   "/api/users/2",
			Body:   map[string]any{"name": "Alex", "job": "Resident"},
			Tags:   []string{"reqres", "users"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
				assertions.Equals("job", "Resident"),
				assertions.MatchesSchema("put_user"),
			},
		},
		{
			Name:   "delete_user",
			Target: TargetReqres,
			Method: "DELETE",
			Path:   "/api/users/2",
			Tags:   []string{"reqres", "users"},
			Expect: []assertions.Assertion{
				assertions.Status(204),
				assertions.EmptyBody(),
			},
		},
		{
			Name:   "user_registration",
			Target: TargetReqres,
			Method: "POST",
			Path:   "/api/register",
			Body:   map[string]any{"email": "eve.holt@reqres.in", "password": "pistol"},
			Tags:   []string{"reqres", "auth"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
				assertions.Equals("id", 4),
				assertions.MatchesSchema("user_registration"),
			},
		},
		{
			Name:   "unsuccessful_user_registration",
			Target: TargetReqres,
			Method: "POST",
			Path:   "/api/register",
			Body:   map[string]any{"email": "sydney@fife"},
			Tags:   []string{"reqres", "auth", "negative"},
			Expect: []assertions.Assertion{
				assertions.Status(400),
				assertions.Equals("error", "Missing password"),
			},
		},
		{
			Name:   "user_successful_login",
			Target: TargetReqres,
			Method: "POST",
			Path:   "/api/register",
			Body:   map[string]any{"email": "eve.holt@reqres.in", "password": "1234"},
			Tags:   []string{"reqres", "auth"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
				assertions.MatchesSchema("successful_login"),
			},
		},
		{
			Name:   "user_unsuccessful_login",
			Target: TargetReqres,
			Method: "POST",
			Path:   "/api/register",
			Body:   map[string]any{"email": "peter@klaven"},
			Tags:   []string{"reqres", "auth", "negative"},
			Expect: []assertions.Assertion{
				assertions.Status(400),
			},
		},
		{
			Name:   "get_delayed_response",
			Target: TargetReqres,
			Method: "GET",
			Path:   "/api/users",
			Query:  map[string]string{"delay": "3"},
			Tags:   []string{"reqres", "users", "slow"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
			},
		},
		{
			Name:   "cat_fact",
			Target: TargetCatFact,
			Method: "GET",
			Path:   "/fact",
			Tags:   []string{"catfact"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
				assertions.MatchesSchema("cat_fact"),
			},
		},
		{
			Name:   "cat_facts_page",
			Target: TargetCatFact,
			Method: "GET",
			Path:   "/facts",
			Query:  map[string]string{"limit": "2"},
			Tags:   []string{"catfact"},
			Expect: []assertions.Assertion{
				assertions.Status(200),
				assertions.Length("data", 2),
				assertions.MatchesSchema("cat_facts"),
			},
		},
	}
}
