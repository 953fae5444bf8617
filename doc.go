/*
Package qfind implements an on-host, in-memory file-name search engine.

Given a directory root it builds an index of every reachable file path and
answers substring, short-literal, and regex queries with matching absolute
paths, filtered by the caller's access rights and ranked by relevance.

# Architecture

The engine is built from a small number of cooperating structures:

  - A trigram extractor slides a three-byte window over each path and packs
    the windows into 24-bit tokens.
  - A feed-forward Bloom filter pair answers probabilistic trigram membership
    with no false negatives, so most absent queries finish without touching a
    posting list. Positive lookups are recorded in the secondary filter for
    query-planning analytics.
  - A posting-list store maps every trigram to the sorted set of file ids
    whose path contains it. At commit each list is delta-coded, Golomb-Rice
    coded with a per-list parameter, entropy-coded with zstd, and packed into
    one contiguous blob addressed by a trigram directory.
  - A path trie with run-length nodes serves queries below the trigram floor
    (one or two bytes).
  - An LSM-style update queue batches filesystem-change events; a background
    committer folds them into the index on a size trigger or a deadline.

# Quick start

	package main

	import (
	    "fmt"
	    "log"
	    "os"

	    "github.com/wizenheimer/qfind"
	)

	func main() {
	    ix, err := qfind.New(qfind.DefaultConfig())
	    if err != nil {
	        log.Fatal(err)
	    }
	    defer ix.Close()

	    if _, err := ix.Build("/home"); err != nil {
	        log.Fatal(err)
	    }

	    results, err := ix.NewSearch().
	        WithQuery("notes").
	        WithUser(uint32(os.Getuid()), uint32(os.Getgid())).
	        WithMaxResults(10).
	        Execute()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ids := make([]qfind.FileID, len(results))
	    for i, r := range results {
	        ids[i] = r.ID
	    }
	    for _, path := range ix.ResolvePaths(ids) {
	        fmt.Println(path)
	    }
	}

# Consistency

Queries observe the most recently committed snapshot. Adds and deletes that
have been enqueued but not committed are never visible; a delete becomes a
tombstone at commit and is filtered out of every later query. File ids are
allocated monotonically and never reused within an index lifetime.

# Concurrency

All exported methods are safe for concurrent use. A single reader/writer
lock protects the index: queries run under the read lock, mutations under
the write lock. The enqueue operations also take the write lock, so a
producer waits for a commit in progress to finish; the update batches
themselves are guarded by their own short locks.
*/
package qfind
