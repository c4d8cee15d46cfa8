package minio

import (
	"encoding/json"
	"strings"
)

type bucketPolicy struct {
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string          `json:"Effect"`
	Principal json.RawMessage `json:"Principal"`
	Action    json.RawMessage `json:"Action"`
}

// policyAllowsPublicRead reports whether the bucket policy lets anonymous
// callers read objects, which is what a "public-read" bucket ACL means.
func policyAllowsPublicRead(policy string) bool {
	if strings.TrimSpace(policy) == "" {
		return false
	}
	var p bucketPolicy
	if err := json.Unmarshal([]byte(policy), &p); err != nil {
		return false
	}
	for _, st := range p.Statement {
		if st.Effect != "Allow" || !anonymous(st.Principal) {
			continue
		}
		for _, a := range stringList(st.Action) {
			if a == "s3:GetObject" || a == "s3:*" || a == "*" {
				return true
			}
		}
	}
	return false
}

// anonymous accepts "*", {"AWS":"*"} and {"AWS":["*"]}.
func anonymous(raw json.RawMessage) bool {
	for _, p := range stringList(raw) {
		if p == "*" {
			return true
		}
	}
	var byType map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byType); err != nil {
		return false
	}
	for _, p := range stringList(byType["AWS"]) {
		if p == "*" {
			return true
		}
	}
	return false
}

// stringList decodes a policy field that may be a string or a list of strings.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}
