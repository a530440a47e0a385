// Package model defines the data structures shared by the extraction and
// validation packages.
//
// This package contains the following main types:
//   - QuestionRecord: the structured result of extracting one question page
//   - AnswerChoice: one labeled choice of a QuestionRecord
//   - ValidationReport: per-stage verdicts of the A-F validation pipeline
//   - FixtureResult: the report, record and outcome for one fixture
//   - Summary: aggregate counts over a batch of fixture results
//
// The types live in their own package because extract, validate, leakage,
// pipeline, database and report all exchange them. All of them serialize to
// JSON for report output and database storage.
package model
