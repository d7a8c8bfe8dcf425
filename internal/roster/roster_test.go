package roster

import (
	"strings"
	"testing"
)

const gradebook = "\ufeffStudent,ID,SIS User ID,SIS Login ID,Section\n" +
	"    Points Possible,,,,\n" +
	"\"Gu, Shuning\",101,936002232,sgu,CSCE 704\n" +
	"\"Doe, Jane\",102,100000001,jdoe,CSCE 704\n" +
	"\"No Id, Person\",103,,nid,CSCE 704\n" +
	"\"Student, Test\",104,999999999,test,CSCE 704\n" +
	",105,123,,CSCE 704\n"

func TestParseGradebook(t *testing.T) {
	res, err := Parse(strings.NewReader(gradebook))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", res.Entries)
	}
	if res.Entries[0].UIN != "936002232" || res.Entries[0].Name != "Gu, Shuning" {
		t.Fatalf("unexpected first entry %+v", res.Entries[0])
	}
	if res.Ignored != 2 {
		t.Fatalf("expected 2 ignored, got %d", res.Ignored)
	}
}

func TestParseRejectsMissingColumns(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"no uin":     "Student,ID\n\"Doe, Jane\",1\n",
		"no student": "Name,SIS User ID\nJane,1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
