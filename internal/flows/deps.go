package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Signup        SignupDeps
	Verify        VerifyDeps
	Signin        SigninDeps
	IssueSession  IssueSessionDeps
	AccountStatus AccountStatusDeps
}
